package auth

import "context"

type defaultUser struct {
	user     User
	password string
}

func defaultUsers() []defaultUser {
	return []defaultUser{
		{User{ID: "user_admin_001", Email: "admin@maptss.ao", Name: "Administrador MAPTSS", Role: RoleAdmin}, "admin123"},
		{User{ID: "user_gestor_001", Email: "gestor@maptss.ao", Name: "Gestor MAPTSS", Role: RoleManager}, "gestor123"},
		{User{ID: "user_empregador_001", Email: "rh@empresa.ao", Name: "RH Empresa XYZ", Role: RoleEmployer, Company: "Empresa XYZ, Lda", Sector: "Tecnologia"}, "empregador123"},
		{User{ID: "user_citizen_001", Email: "joao.silva@email.com", Name: "João Silva Santos", Role: RoleCitizen, CitizenID: "citizen_001"}, "citizen123"},
	}
}

// SeedDefaultUsers creates one active account per role when no users exist
// yet. It returns how many accounts were created.
func (s *Service) SeedDefaultUsers(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.store.users(ctx)
	if err != nil {
		return 0, err
	}
	if len(users) > 0 {
		return 0, nil
	}
	now := s.now().UTC()
	for _, d := range defaultUsers() {
		hash, err := HashPassword(d.password, s.hash)
		if err != nil {
			return 0, err
		}
		u := d.user
		u.PasswordHash = hash
		u.Permissions = PermissionsFor(u.Role)
		u.Active = true
		u.CreatedAt = now
		users = append(users, u)
	}
	if err := s.store.saveUsers(ctx, users); err != nil {
		return 0, err
	}
	s.logger.Info("seeded default users", "count", len(users))
	return len(users), nil
}
