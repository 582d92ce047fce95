// Package service provides core business logic components for the exchange
// front-end core.
//
// The dispatcher component implements a fan-out message distribution system
// that delivers chart updates to multiple subscribers while handling slow
// clients gracefully.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nevermind0825/phamous-sub000/internal/model"
	"github.com/nevermind0825/phamous-sub000/internal/utils"
)

// Subscriber represents a client subscription to specific token symbols.
//
// Each subscriber maintains its own buffered channel for receiving chart
// updates and a set of symbols they're interested in for efficient filtering.
type Subscriber struct {
	id                uuid.UUID               // Unique identifier for the subscriber
	ch                chan model.CandleUpdate // Buffered channel for update delivery
	symbolsSubscribed map[string]struct{}     // Set of subscribed token symbols
}

// Updates returns the subscriber's receive channel. The channel is closed
// when the subscriber is removed or the dispatcher shuts down.
func (s *Subscriber) Updates() <-chan model.CandleUpdate {
	return s.ch
}

// DispatcherConfig holds configuration parameters for the Dispatcher.
type DispatcherConfig struct {
	MaxSymbolsAllowed int // Maximum symbols per subscription to prevent resource abuse
}

// Dispatcher implements a fan-out message distribution system for chart updates.
//
// The dispatcher uses the actor model pattern where a single goroutine owns and
// manages all shared state (subscribers map), eliminating the need for mutexes
// while ensuring thread safety. External interactions happen through channels.
type Dispatcher struct {
	cfg              DispatcherConfig          // Configuration parameters
	subscribers      map[uuid.UUID]*Subscriber // Active subscribers (owned by dispatch goroutine)
	subscriptionCh   chan *Subscriber          // Channel for new subscription requests
	unsubscriptionCh chan *Subscriber          // Channel for unsubscription requests
	started          atomic.Bool               // Atomic flag tracking dispatcher state
}

// NewDispatcher creates a new Dispatcher instance with the provided configuration.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		cfg:              cfg,
		subscribers:      make(map[uuid.UUID]*Subscriber),
		subscriptionCh:   make(chan *Subscriber, 10), // Buffered to prevent blocking
		unsubscriptionCh: make(chan *Subscriber, 10), // Buffered to prevent blocking
	}
}

// Subscribe creates a new subscription for the specified token symbols.
//
// This method validates the requested symbols and creates a new Subscriber
// if validation passes. The subscription request is sent to the dispatcher
// goroutine via a channel to ensure thread-safe addition to the subscribers map.
func (b *Dispatcher) Subscribe(symbols []string) (*Subscriber, error) {
	if !b.started.Load() {
		return nil, errors.New("dispatcher not started")
	}

	if err := utils.ValidateSymbols(symbols, b.cfg.MaxSymbolsAllowed); err != nil {
		return nil, err
	}

	symSet := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		symSet[s] = struct{}{}
	}

	sub := &Subscriber{
		id:                uuid.New(),
		ch:                make(chan model.CandleUpdate, 100), // buffer size per client
		symbolsSubscribed: symSet,
	}

	// write to channel, return error if blocked
	select {
	case b.subscriptionCh <- sub:
	default:
		b.unsubscriptionCh <- sub // If channel is full, unsubscribe the user
		return nil, fmt.Errorf("subscription channel is full, will unsubscribe user")
	}

	return sub, nil
}

// subscribe is an internal method that adds a subscriber to the active subscribers map.
func (b *Dispatcher) subscribe(subscriber *Subscriber) {
	b.subscribers[subscriber.id] = subscriber
}

// Unsubscribe removes a subscriber from the dispatcher.
func (b *Dispatcher) Unsubscribe(sub *Subscriber) error {
	// write to channel, return error if blocked
	select {
	case b.unsubscriptionCh <- sub:
		return nil
	default:
		return fmt.Errorf("subscription channel is full")
	}
}

// unsubscribe is an internal method that removes a subscriber and cleans up resources.
func (b *Dispatcher) unsubscribe(sub *Subscriber) {
	if _, ok := b.subscribers[sub.id]; ok {
		delete(b.subscribers, sub.id)
		close(sub.ch)
	}
}

// StartDispatching starts the main dispatcher goroutine that handles all
// subscriber management and message distribution.
//
// This method implements the actor model pattern where a single goroutine owns
// and manages all shared state. The goroutine processes requests from three
// sources:
//  1. Context cancellation for graceful shutdown
//  2. Subscription/unsubscription requests via channels
//  3. Incoming chart updates for distribution
func (b *Dispatcher) StartDispatching(ctx context.Context, updateCh <-chan model.CandleUpdate) error {
	if !b.started.CompareAndSwap(false, true) {
		return errors.New("dispatcher already started")
	}

	go func() {

		defer func() {
			// Cleanup on shutdown
			for _, sub := range b.subscribers {
				close(sub.ch)
			}
			b.subscribers = make(map[uuid.UUID]*Subscriber)
		}()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msgf("dispatcher stopped")
				return
			case sub := <-b.subscriptionCh:
				b.subscribe(sub)
			case sub := <-b.unsubscriptionCh:
				b.unsubscribe(sub)
			case update := <-updateCh:
				b.dispatch(update)
			}
		}
	}()
	return nil
}

// dispatch distributes a chart update to all interested subscribers.
//
// This method is only called from within the dispatcher goroutine, ensuring
// thread-safe access to the subscribers map without requiring mutex protection.
//
// Behavior for slow clients:
//   - If subscriber channel is full, drops oldest buffered update
//   - Ensures new update is always delivered (replacing oldest)
func (b *Dispatcher) dispatch(update model.CandleUpdate) {
	for _, sub := range b.subscribers {
		if _, ok := sub.symbolsSubscribed[update.Symbol]; ok {
			select {
			case sub.ch <- update:
				// Successfully delivered without blocking
			default:
				// channel full, drop oldest for slow client
				log.Info().Str("subscriber", sub.id.String()).Msg("subscriber is too slow, dropping oldest buffered update")
				<-sub.ch
				sub.ch <- update
			}
		}
	}
}
