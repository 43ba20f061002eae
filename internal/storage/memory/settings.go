package memory

import (
	"context"

	derrors "github.com/julianstephens/daystreak/internal/errors"
)

func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, derrors.StoreFailure("get setting", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.settings[key]
	return v, ok, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return derrors.StoreFailure("set setting", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}
