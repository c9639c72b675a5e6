package application

import (
	"context"
	"time"

	"github.com/arkade-os/relayd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

func (s *service) publishAlert(topic ports.Topic, message interface{}) {
	if s.alerts == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.alerts.Publish(ctx, topic, message); err != nil {
		log.WithError(err).WithField("topic", topic).Warn("failed to publish alert")
	}
}
