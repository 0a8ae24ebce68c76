package application

import (
	"fmt"
	"reflect"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/itszoriel/munlink-sub001/pkg/eventbus"
)

// Controller registers a set of routes on the shared router.
type Controller interface {
	Key() string
	Register(r *mux.Router)
}

// Module is a self-contained feature unit (schema, services, controllers,
// event handlers) registered on the application at startup.
type Module interface {
	Name() string
	Register(app Application) error
}

type Application interface {
	Pool() *pgxpool.Pool
	Logger() *logrus.Logger
	EventPublisher() eventbus.EventBus
	Migrations() *MigrationRegistry

	RegisterServices(services ...interface{})
	Service(service interface{}) interface{}
	RegisterControllers(controllers ...Controller)
	Controllers() []Controller
	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	Middleware() []mux.MiddlewareFunc
	RegisterModules(modules ...Module) error
}

func New(pool *pgxpool.Pool, logger *logrus.Logger, bus eventbus.EventBus) Application {
	return &application{
		pool:       pool,
		logger:     logger,
		bus:        bus,
		migrations: NewMigrationRegistry(),
		services:   map[reflect.Type]interface{}{},
	}
}

type application struct {
	pool        *pgxpool.Pool
	logger      *logrus.Logger
	bus         eventbus.EventBus
	migrations  *MigrationRegistry
	services    map[reflect.Type]interface{}
	controllers []Controller
	middleware  []mux.MiddlewareFunc
}

func (a *application) Pool() *pgxpool.Pool {
	return a.pool
}

func (a *application) Logger() *logrus.Logger {
	return a.logger
}

func (a *application) EventPublisher() eventbus.EventBus {
	return a.bus
}

func (a *application) Migrations() *MigrationRegistry {
	return a.migrations
}

func (a *application) RegisterServices(services ...interface{}) {
	for _, s := range services {
		t := reflect.TypeOf(s)
		if t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		a.services[t] = s
	}
}

// Service returns the registered service matching the type of the given
// (usually zero-valued pointer) sample. Panics on a missing registration:
// that is a wiring bug, not a runtime condition.
func (a *application) Service(service interface{}) interface{} {
	t := reflect.TypeOf(service)
	s, ok := a.services[t]
	if !ok {
		panic(fmt.Sprintf("application: service %s is not registered", t))
	}
	return s
}

func (a *application) RegisterControllers(controllers ...Controller) {
	a.controllers = append(a.controllers, controllers...)
}

func (a *application) Controllers() []Controller {
	return a.controllers
}

func (a *application) RegisterMiddleware(middleware ...mux.MiddlewareFunc) {
	a.middleware = append(a.middleware, middleware...)
}

func (a *application) Middleware() []mux.MiddlewareFunc {
	return a.middleware
}

func (a *application) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.Register(a); err != nil {
			return fmt.Errorf("register module %s: %w", m.Name(), err)
		}
	}
	return nil
}
