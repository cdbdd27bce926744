package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory hands out the user and news repositories of one database handle.
// They are built on first use and shared afterwards.
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// GetRepositories is safe for concurrent use.
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository is used by the account tooling, which needs nothing else.
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

func (f *Factory) GetNewsRepository() NewsRepository {
	return f.GetRepositories().News
}
