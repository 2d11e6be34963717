package resource

import (
	"sync"

	"gorm.io/gorm"

	"media-service/pkg/assert"
	"media-service/pkg/config"
	"media-service/pkg/manager"
	"media-service/pkg/repository"
)

var (
	mysqlResourceOnce sync.Once
	mysqlSingleton    *MysqlResource
)

// MysqlResource manages the lifecycle of the main database connection.
type MysqlResource struct {
	db *repository.Database
}

// DefaultMysqlResource returns the global MySQL resource instance.
func DefaultMysqlResource() *MysqlResource {
	assert.NotCircular()
	mysqlResourceOnce.Do(func() {
		mysqlSingleton = &MysqlResource{}
	})
	assert.NotNil(mysqlSingleton)
	return mysqlSingleton
}

// MustOpen establishes the database connection using global configuration.
func (r *MysqlResource) MustOpen() {
	if r.db != nil {
		return
	}

	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized")
	}

	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		panic("failed to connect mysql: " + err.Error())
	}
	r.db = db
}

// Close releases the connection pool.
func (r *MysqlResource) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// MainDB exposes the raw gorm handle used by the DAO layer.
func (r *MysqlResource) MainDB() *gorm.DB {
	if r.db == nil {
		return nil
	}
	return r.db.Self
}

// MySqlResourcePlugin wires the resource into the manager.
type MySqlResourcePlugin struct{}

// Name identifies the plugin slot.
func (p *MySqlResourcePlugin) Name() string {
	return "mysql"
}

// MustCreateResource returns the singleton MySQL resource for registration.
func (p *MySqlResourcePlugin) MustCreateResource() manager.Resource {
	return DefaultMysqlResource()
}
