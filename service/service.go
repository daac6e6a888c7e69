package service

import (
	"github.com/fulldump/ndmf/database"
	"github.com/fulldump/ndmf/ndmf"
)

type Service struct {
	db *database.Database
}

func NewService(db *database.Database) *Service {
	return &Service{
		db: db,
	}
}

func (s *Service) CreateMap(name string) (*database.Map, error) {
	return s.db.CreateMap(name)
}

func (s *Service) GetMap(name string) (*database.Map, error) {
	return s.db.GetMap(name)
}

func (s *Service) ListMaps() ([]string, error) {
	return s.db.ListMaps(), nil
}

func (s *Service) DeleteMap(name string) error {
	return s.db.DropMap(name)
}

func (s *Service) VerifyMap(name string) (*ndmf.Report, error) {

	m, err := s.db.GetMap(name)
	if err != nil {
		return nil, err
	}

	return m.Verify()
}
