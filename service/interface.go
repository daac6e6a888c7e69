package service

import (
	"errors"

	"github.com/fulldump/ndmf/database"
	"github.com/fulldump/ndmf/ndmf"
)

var ErrorMapNotFound = database.ErrMapNotFound
var ErrorMapAlreadyExists = database.ErrMapAlreadyExists
var ErrorEntryNotFound = errors.New("entry not found")

type Servicer interface {
	CreateMap(name string) (*database.Map, error)
	GetMap(name string) (*database.Map, error)
	ListMaps() ([]string, error)
	DeleteMap(name string) error
	VerifyMap(name string) (*ndmf.Report, error)
}
