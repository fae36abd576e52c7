// Package feed publishes periodic JSON snapshots of the tracked
// aircraft to an AMQP fan-out exchange, in the dump1090 aircraft.json
// field layout.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"track1090/track"
)

// Aircraft is one snapshot entry. Fields whose validity cell has expired
// or was never set are omitted rather than zeroed.
type Aircraft struct {
	Hex      string   `json:"hex"`
	Flight   string   `json:"flight,omitempty"`
	Squawk   string   `json:"squawk,omitempty"`
	AltBaro  *int     `json:"alt_baro,omitempty"`
	AltGeom  *int     `json:"alt_geom,omitempty"`
	Gs       *float64 `json:"gs,omitempty"`
	Track    *float64 `json:"track,omitempty"`
	BaroRate *int     `json:"baro_rate,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
	NUCp     *int     `json:"nucp,omitempty"`
	Messages uint64   `json:"messages"`
	Seen     float64  `json:"seen"`
	Rssi     float64  `json:"rssi"`
}

// Scan is a whole-table snapshot.
type Scan struct {
	Now      float64    `json:"now"`
	Messages uint64     `json:"messages"`
	Aircraft []Aircraft `json:"aircraft"`
}

// Snapshot renders the tracker table at wall-clock time nowMs.
func Snapshot(t *track.Tracker, nowMs int64) Scan {
	s := Scan{
		Now:      float64(nowMs) / 1000,
		Messages: t.Stats.Messages,
		Aircraft: make([]Aircraft, 0, t.Len()),
	}

	t.Each(func(a *track.Aircraft) {
		e := Aircraft{
			Hex:      a.HexAddr,
			Messages: a.Messages,
			Seen:     float64(nowMs-a.Seen) / 1000,
			Rssi:     10 * math.Log10(a.AverageSignalLevel()),
		}
		if a.CallsignValid.Valid() {
			e.Flight = a.Callsign
		}
		if a.SquawkValid.Valid() {
			e.Squawk = fmt.Sprintf("%04x", a.Squawk)
		}
		if a.AltitudeBaroValid.Valid() {
			v := a.AltitudeBaro
			e.AltBaro = &v
		}
		if a.AltitudeGeomValid.Valid() {
			v := a.AltitudeGeom
			e.AltGeom = &v
		}
		if a.GSValid.Valid() {
			v := a.GS
			e.Gs = &v
		}
		if a.TrackValid.Valid() {
			v := a.Track
			e.Track = &v
		}
		if a.BaroRateValid.Valid() {
			v := a.BaroRate
			e.BaroRate = &v
		}
		if lat, lon, ok := a.Position(); ok {
			nuc := a.PosNUC
			e.Lat, e.Lon, e.NUCp = &lat, &lon, &nuc
		}
		s.Aircraft = append(s.Aircraft, e)
	})

	return s
}

// Publisher owns the AMQP channel and the publish ticker.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	exchange string
	log      *logrus.Logger
}

// NewPublisher dials the broker and declares the fan-out exchange.
func NewPublisher(url, exchange string, log *logrus.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"fanout", // kind
		false,    // durable
		false,    // delete when unused
		false,    // exclusive
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{conn: conn, ch: ch, exchange: exchange, log: log}, nil
}

// Run publishes a snapshot every interval until the context is
// cancelled. Snapshots are taken by snapshot on the tracker's goroutine;
// callers pass a closure that hands the work off appropriately.
func (p *Publisher) Run(ctx context.Context, interval time.Duration, snapshot func() Scan) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer p.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			body, err := json.Marshal(snapshot())
			if err != nil {
				p.log.WithError(err).Error("failed to marshal snapshot")
				continue
			}

			msg := amqp.Publishing{
				DeliveryMode: amqp.Transient,
				Timestamp:    time.Now(),
				ContentType:  "application/json",
				Body:         body,
			}

			if err := p.ch.Publish(p.exchange, "", false, false, msg); err != nil {
				p.log.WithError(err).Error("failed to publish snapshot")
			}
		}
	}
}

func (p *Publisher) Close() {
	p.ch.Close()
	p.conn.Close()
}
