package manager

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"media-service/pkg/config"
	"media-service/pkg/logger"
)

// Resource 进程级资源（数据库连接、消息客户端等）
type Resource interface {
	MustOpen()
	Close()
}

// ResourcePlugin 资源插件，init阶段注册
type ResourcePlugin interface {
	Name() string
	MustCreateResource() Resource
}

// Service 领域/应用服务，初始化阶段注入依赖
type Service interface {
	Init(deps *Dependencies) error
}

// ServicePlugin 服务插件，init阶段注册
type ServicePlugin interface {
	Name() string
	MustCreateService() Service
}

// Component 后台组件（消费者、Worker、巡检等）
type Component interface {
	Start() error
	Stop() error
	GetName() string
}

// ComponentPlugin 组件插件，init阶段注册
type ComponentPlugin interface {
	Name() string
	MustCreateComponent(deps *Dependencies) Component
}

// RouteRegistrar 路由注册函数，由HTTP适配层在init阶段登记
type RouteRegistrar func(r *gin.Engine)

// Dependencies 依赖注入容器
type Dependencies struct {
	DB              *gorm.DB
	Config          *config.Config
	MediaAppService interface{}
}

type registry struct {
	mu               sync.Mutex
	resourcePlugins  []ResourcePlugin
	servicePlugins   []ServicePlugin
	componentPlugins []ComponentPlugin
	routeRegistrars  []RouteRegistrar
	resources        []Resource
	components       []Component
}

var defaultRegistry = &registry{}

// RegisterResourcePlugin 注册资源插件
func RegisterResourcePlugin(p ResourcePlugin) {
	if p == nil {
		return
	}
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.resourcePlugins = append(defaultRegistry.resourcePlugins, p)
}

// RegisterServicePlugin 注册服务插件
func RegisterServicePlugin(p ServicePlugin) {
	if p == nil {
		return
	}
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.servicePlugins = append(defaultRegistry.servicePlugins, p)
}

// RegisterComponentPlugin 注册组件插件
func RegisterComponentPlugin(p ComponentPlugin) {
	if p == nil {
		return
	}
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.componentPlugins = append(defaultRegistry.componentPlugins, p)
}

// RegisterRoutes 登记一组路由，启动时统一挂载
func RegisterRoutes(fn RouteRegistrar) {
	if fn == nil {
		return
	}
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.routeRegistrars = append(defaultRegistry.routeRegistrars, fn)
}

// MustInitResources 打开所有资源，失败即panic
func MustInitResources() {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for _, p := range defaultRegistry.resourcePlugins {
		res := p.MustCreateResource()
		res.MustOpen()
		defaultRegistry.resources = append(defaultRegistry.resources, res)
		logger.Infof("Resource opened name=%s", p.Name())
	}
}

// CloseResources 逆序释放所有资源
func CloseResources() {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for i := len(defaultRegistry.resources) - 1; i >= 0; i-- {
		defaultRegistry.resources[i].Close()
	}
	defaultRegistry.resources = nil
}

// MustInitServices 注入依赖并初始化所有服务
func MustInitServices(deps *Dependencies) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for _, p := range defaultRegistry.servicePlugins {
		svc := p.MustCreateService()
		if err := svc.Init(deps); err != nil {
			panic(fmt.Sprintf("init service %s: %v", p.Name(), err))
		}
		logger.Infof("Service initialized name=%s", p.Name())
	}
}

// MustInitComponents 创建并启动所有组件
func MustInitComponents(deps *Dependencies) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for _, p := range defaultRegistry.componentPlugins {
		comp := p.MustCreateComponent(deps)
		if err := comp.Start(); err != nil {
			panic(fmt.Sprintf("start component %s: %v", p.Name(), err))
		}
		defaultRegistry.components = append(defaultRegistry.components, comp)
		logger.Infof("Component started name=%s", comp.GetName())
	}
}

// RegisterAllRoutes 把登记的路由挂载到gin引擎
func RegisterAllRoutes(r *gin.Engine) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for _, fn := range defaultRegistry.routeRegistrars {
		fn(r)
	}
}

// Shutdown 逆序停止所有组件
func Shutdown() {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for i := len(defaultRegistry.components) - 1; i >= 0; i-- {
		comp := defaultRegistry.components[i]
		if err := comp.Stop(); err != nil {
			logger.Warnf("stop component failed name=%s error=%s", comp.GetName(), err.Error())
		}
	}
	defaultRegistry.components = nil
}
