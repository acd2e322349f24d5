package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/harborstack/keel/config"
	"github.com/harborstack/keel/errors"
	"github.com/harborstack/keel/logger"
)

const (
	keyPrefix         = "keel"
	presenceTTL       = 3 * time.Second
	heartbeatInterval = 1 * time.Second
	healthLogMax      = 64
	initTimeout       = 5 * time.Second
)

// RouterUnavailableMarker is the message emitted when the optional router
// indirection has no live instances. The exact text is load-bearing:
// existing deployments filter on this substring.
const RouterUnavailableMarker = "Unavailable hydra-router instances"

// RedisClient is the default registry Client, backed by redis. Instances
// advertise themselves under a TTL presence key refreshed by a heartbeat,
// publish their route table to a set, and append health-log entries to a
// capped list.
type RedisClient struct {
	rdb        *goredis.Client
	cfg        *config.Config
	log        *logger.Logger
	events     chan Event
	descriptor *ServiceDescriptor
	testMode   bool

	heartbeatStop chan struct{}
	heartbeatDone sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

var _ Client = (*RedisClient)(nil)

// NewRedisClient creates an unconnected redis registry client.
func NewRedisClient(log *logger.Logger) *RedisClient {
	return &RedisClient{
		log:    log.WithComponent("discovery"),
		events: make(chan Event, 16),
	}
}

// Init connects to redis, verifies the connection, and resolves the
// configuration: an empty serviceIP is replaced with the local address and a
// zero servicePort with a free ephemeral port.
func (c *RedisClient) Init(ctx context.Context, cfg *config.Config, testMode bool) (*config.Config, error) {
	if cfg == nil || cfg.ServiceDescriptor.Redis == nil {
		return nil, errors.Registration("registry connection block missing", nil)
	}

	resolved := cfg.Copy()
	c.testMode = testMode

	rc := resolved.ServiceDescriptor.Redis
	c.rdb = goredis.NewClient(&goredis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
		PoolSize: rc.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	if err := c.rdb.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Registration(
			fmt.Sprintf("registry unreachable at %s", rc.Addr), err)
	}

	if resolved.ServiceDescriptor.ServiceIP == "" {
		ip, err := localIP()
		if err != nil {
			return nil, errors.Registration("resolve local address", err)
		}
		resolved.ServiceDescriptor.ServiceIP = ip
	}
	if resolved.ServiceDescriptor.ServicePort == 0 {
		port, err := freePort()
		if err != nil {
			return nil, errors.Registration("assign service port", err)
		}
		resolved.ServiceDescriptor.ServicePort = port
	}

	c.cfg = resolved
	c.emit(Event{Kind: KindLog, Level: "info", Message: "registry connection established"})

	// The router indirection is optional; report its absence but carry on.
	if !testMode {
		n, err := c.rdb.SCard(ctx, keyPrefix+":routers").Result()
		if err == nil && n == 0 {
			c.emit(Event{Kind: KindRouterUnavailable, Level: "info", Message: RouterUnavailableMarker})
		}
	}

	c.log.Debug("Registry client initialized", logger.Fields(
		"addr", rc.Addr,
		"service", resolved.ServiceDescriptor.ServiceName,
	))
	return resolved.Copy(), nil
}

// RegisterService writes the instance record and presence key and starts
// the heartbeat. Returns the assigned service descriptor.
func (c *RedisClient) RegisterService(ctx context.Context) (*ServiceDescriptor, error) {
	if c.cfg == nil {
		return nil, errors.Registration("register before init", nil)
	}

	sd := c.cfg.ServiceDescriptor
	desc := &ServiceDescriptor{
		ServiceName:    sd.ServiceName,
		InstanceID:     uuid.New().String()[:8],
		ServiceIP:      sd.ServiceIP,
		ServicePort:    sd.ServicePort,
		ServiceType:    sd.ServiceType,
		ServiceVersion: sd.ServiceVersion,
	}

	if err := c.writePresence(ctx, desc); err != nil {
		return nil, errors.Registration("write instance record", err)
	}

	c.mu.Lock()
	c.descriptor = desc
	c.mu.Unlock()

	if !c.testMode {
		c.startHeartbeat()
	}

	c.log.Info("Service registered", logger.Fields(
		"service", desc.ServiceName,
		"instance", desc.InstanceID,
		"addr", fmt.Sprintf("%s:%d", desc.ServiceIP, desc.ServicePort),
	))

	out := *desc
	return &out, nil
}

// RegisterRoutes replaces the advertised route table for this service.
func (c *RedisClient) RegisterRoutes(ctx context.Context, routes []string) error {
	if c.rdb == nil {
		return errors.Registration("register routes before init", nil)
	}
	key := fmt.Sprintf("%s:%s:service:routes", keyPrefix, c.ServiceName())

	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if len(routes) > 0 {
		members := make([]interface{}, len(routes))
		for i, r := range routes {
			members[i] = r
		}
		pipe.SAdd(ctx, key, members...)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// SendToHealthLog appends a timestamped entry to the instance health log,
// capped at the most recent entries. Unless suppressed, the entry is also
// echoed through the event source.
func (c *RedisClient) SendToHealthLog(ctx context.Context, level, message string, suppressEmit bool) error {
	if c.rdb == nil {
		return errors.Registration("health log before init", nil)
	}

	entry, err := json.Marshal(map[string]string{
		"ts":      time.Now().UTC().Format(time.RFC3339),
		"level":   level,
		"message": message,
	})
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s:%s:%s:health:log", keyPrefix, c.ServiceName(), c.instanceID())
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, key, entry)
	pipe.LTrim(ctx, key, 0, healthLogMax-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	if !suppressEmit {
		c.emit(Event{Kind: KindLog, Level: level, Message: message})
	}
	return nil
}

// Shutdown deregisters the instance, stops the heartbeat, closes the event
// channel, and releases the connection. Safe to call more than once.
func (c *RedisClient) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	desc := c.descriptor
	c.mu.Unlock()

	c.stopHeartbeat()

	var err error
	if c.rdb != nil {
		if desc != nil {
			pipe := c.rdb.TxPipeline()
			pipe.Del(ctx, c.presenceKey(desc))
			pipe.HDel(ctx, keyPrefix+":nodes", desc.InstanceID)
			_, err = pipe.Exec(ctx)
		}
		if cerr := c.rdb.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	close(c.events)
	c.log.Info("Registry client shut down")
	return err
}

// Events returns the asynchronous log-event source.
func (c *RedisClient) Events() <-chan Event { return c.events }

// ServiceName returns the registered service name.
func (c *RedisClient) ServiceName() string {
	if c.cfg == nil {
		return ""
	}
	return c.cfg.ServiceDescriptor.ServiceName
}

// InstanceVersion returns the version advertised for this instance.
func (c *RedisClient) InstanceVersion() string {
	if c.cfg == nil {
		return ""
	}
	return c.cfg.ServiceDescriptor.ServiceVersion
}

// --- internals ---

func (c *RedisClient) instanceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.descriptor == nil {
		return ""
	}
	return c.descriptor.InstanceID
}

func (c *RedisClient) presenceKey(desc *ServiceDescriptor) string {
	return fmt.Sprintf("%s:%s:%s:presence", keyPrefix, desc.ServiceName, desc.InstanceID)
}

// writePresence refreshes the presence key and the node record. Called at
// registration and from the heartbeat.
func (c *RedisClient) writePresence(ctx context.Context, desc *ServiceDescriptor) error {
	payload, err := json.Marshal(desc)
	if err != nil {
		return err
	}

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, c.presenceKey(desc), desc.InstanceID, presenceTTL)
	pipe.HSet(ctx, keyPrefix+":nodes", desc.InstanceID, payload)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *RedisClient) startHeartbeat() {
	c.heartbeatStop = make(chan struct{})
	c.heartbeatDone.Add(1)

	go func() {
		defer c.heartbeatDone.Done()
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-c.heartbeatStop:
				return
			case <-ticker.C:
				c.mu.Lock()
				desc := c.descriptor
				c.mu.Unlock()
				if desc == nil {
					continue
				}
				ctx, cancel := context.WithTimeout(context.Background(), heartbeatInterval)
				if err := c.writePresence(ctx, desc); err != nil {
					c.log.Warn("Presence refresh failed", logger.Fields(logger.FieldError, err.Error()))
				}
				cancel()
			}
		}
	}()
}

func (c *RedisClient) stopHeartbeat() {
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatDone.Wait()
		c.heartbeatStop = nil
	}
}

// emit delivers an event without ever blocking the client.
func (c *RedisClient) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}

func localIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
