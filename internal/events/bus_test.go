package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestBusPublishDeliversToSubscribers(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := NewBus(log)

	var received []*Event
	bus.Subscribe(TradeSubmitted, func(event *Event) {
		received = append(received, event)
	})
	bus.Subscribe(TradeSubmitted, func(event *Event) {
		received = append(received, event)
	})

	manager := NewManager(bus, log)
	manager.EmitTyped("trading", &TradeSubmittedData{
		TradeID: 1, FundID: 2, Ticker: "AAPL", Side: "BUY", Shares: 10,
	})

	assert.Len(t, received, 2)
	assert.Equal(t, TradeSubmitted, received[0].Type)
	assert.Equal(t, "trading", received[0].Module)
	assert.NotEmpty(t, received[0].ID)
	assert.Equal(t, "AAPL", received[0].Data["ticker"])
}

func TestBusIgnoresUnsubscribedTypes(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := NewBus(log)

	called := false
	bus.Subscribe(AlertCreated, func(event *Event) { called = true })

	NewManager(bus, log).Emit(PriceUpdated, "pricefeed", map[string]interface{}{"ticker": "MSFT"})

	assert.False(t, called)
	assert.Equal(t, 1, bus.SubscriberCount(AlertCreated))
	assert.Equal(t, 0, bus.SubscriberCount(PriceUpdated))
}

func TestAlertResolvedDataEventType(t *testing.T) {
	assert.Equal(t, AlertCancelled, (&AlertResolvedData{Status: "cancelled"}).EventType())
	assert.Equal(t, AlertOverridden, (&AlertResolvedData{Status: "overridden"}).EventType())
}
