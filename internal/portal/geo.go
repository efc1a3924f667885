package portal

import (
	"context"
	"math"
	"sort"

	"maptss.ao/internal/model"
)

const earthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometres between two
// WGS84 points (haversine formula).
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := deg2rad(lat2 - lat1)
	dLon := deg2rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func deg2rad(deg float64) float64 {
	return deg * math.Pi / 180
}

// NearbyCenter is a center with its distance from the query point.
type NearbyCenter struct {
	model.Center
	DistanceKm float64 `json:"distanceKm"`
}

// NearbyCenters returns centers within radiusKm of p, nearest first. Equal
// distances keep collection order. radiusKm <= 0 uses the default radius;
// centers without coordinates are skipped.
func (s *Service) NearbyCenters(ctx context.Context, p model.GeoPoint, radiusKm float64) (out []NearbyCenter, err error) {
	defer func() { observe("nearby_centers", err) }()

	centers, err := s.repos.Centers.All(ctx)
	if err != nil {
		return nil, err
	}
	return s.rankByDistance(centers, p, radiusKm), nil
}

func (s *Service) rankByDistance(centers []model.Center, p model.GeoPoint, radiusKm float64) []NearbyCenter {
	if radiusKm <= 0 {
		radiusKm = s.nearbyRadius
	}
	out := make([]NearbyCenter, 0, len(centers))
	for _, c := range centers {
		if c.Location == nil {
			continue
		}
		d := Distance(p.Latitude, p.Longitude, c.Location.Latitude, c.Location.Longitude)
		if d <= radiusKm {
			out = append(out, NearbyCenter{Center: c, DistanceKm: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}

// CenterFilter narrows Centers; empty fields impose no filter.
type CenterFilter struct {
	Province string
	Status   string
}

// Centers lists training centers matching f.
func (s *Service) Centers(ctx context.Context, f CenterFilter) ([]model.Center, error) {
	var (
		centers []model.Center
		err     error
	)
	if f.Province != "" {
		centers, err = s.repos.Centers.ByProvince(ctx, f.Province)
	} else {
		centers, err = s.repos.Centers.All(ctx)
	}
	observe("centers", err)
	if err != nil {
		return nil, err
	}
	if f.Status == "" {
		return centers, nil
	}
	out := centers[:0]
	for _, c := range centers {
		if c.Status == f.Status {
			out = append(out, c)
		}
	}
	return out, nil
}

// CourseFilter narrows Courses. Duration is in the course's own unit; zero
// means any.
type CourseFilter struct {
	Area     string
	CenterID string
	Duration int
}

func (s *Service) Courses(ctx context.Context, f CourseFilter) ([]model.Course, error) {
	courses, err := s.repos.Courses.FindWhere(ctx, func(c model.Course) bool {
		return (f.Area == "" || c.Area == f.Area) &&
			(f.CenterID == "" || c.CenterID == f.CenterID) &&
			(f.Duration == 0 || c.Duration == f.Duration)
	})
	observe("courses", err)
	return courses, err
}
