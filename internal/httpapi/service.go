package httpapi

import "github.com/mistakeknot/overcast/internal/broker"

// Service exposes the broker over HTTP for producers (bots, scripts) that
// prefer plain requests to a websocket session.
type Service struct {
	brk *broker.Broker
}

func NewService(brk *broker.Broker) *Service {
	return &Service{brk: brk}
}
