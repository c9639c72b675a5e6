package httpservice

import (
	"fmt"
	"time"
)

type Config struct {
	Port              uint32
	AdminPort         uint32
	HeartbeatInterval int64
	EnablePprof       bool
}

func (c Config) Validate() error {
	if c.Port == 0 {
		return fmt.Errorf("missing port")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("invalid heartbeat interval, must be greater than 0")
	}
	return nil
}

func (c Config) address() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c Config) adminAddress() string {
	return fmt.Sprintf(":%d", c.AdminPort)
}

// hasAdminPort tells whether the admin routes are served on a dedicated port.
func (c Config) hasAdminPort() bool {
	return c.AdminPort > 0 && c.AdminPort != c.Port
}

func (c Config) heartbeat() time.Duration {
	return time.Duration(c.HeartbeatInterval) * time.Second
}
