package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/awesome-gocui/gocui"
	. "github.com/logrusorgru/aurora"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"track1090/cpr"
	"track1090/feed"
	"track1090/metrics"
	"track1090/mode_s"
	"track1090/rtl_adsb"
	"track1090/track"
)

func mstime() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// Context serializes all tracker access onto one goroutine: messages,
// the periodic sweep, and snapshot requests from the feed, metrics and
// display all funnel through run().
type Context struct {
	decoder *mode_s.Decoder
	tracker *track.Tracker
	logger  *logrus.Logger

	msgs      chan *track.Message
	snapshots chan chan feed.Scan
	stats     chan chan track.Stats

	display   []displayRow
	displayAt time.Time
}

type displayRow struct {
	hex      string
	flight   string
	squawk   string
	altitude string
	speed    string
	heading  string
	lat, lon string
	seen     string
}

func CreateContext(cfg track.Config, logger *logrus.Logger) *Context {
	ctx := &Context{
		decoder:   &mode_s.Decoder{},
		tracker:   track.New(cfg, cpr.Decoder{}, logger),
		logger:    logger,
		msgs:      make(chan *track.Message, 256),
		snapshots: make(chan chan feed.Scan),
		stats:     make(chan chan track.Stats),
	}
	ctx.decoder.Init()
	return ctx
}

// run owns the tracker. Everything that touches it happens here.
func (ctx *Context) run(done <-chan struct{}, g *gocui.Gui) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case m := <-ctx.msgs:
			ctx.tracker.UpdateFromMessage(m)

		case <-ticker.C:
			now := mstime()
			ctx.tracker.PeriodicUpdate(now)
			ctx.render(now)
			if g != nil {
				g.Update(ctx.update)
			}

		case reply := <-ctx.snapshots:
			reply <- feed.Snapshot(ctx.tracker, mstime())

		case reply := <-ctx.stats:
			reply <- ctx.tracker.Stats
		}
	}
}

// render collects the display rows from the tracker; update() only ever
// reads the rendered copy.
func (ctx *Context) render(now int64) {
	rows := make([]displayRow, 0, ctx.tracker.Len())
	ctx.tracker.Each(func(a *track.Aircraft) {
		r := displayRow{
			hex:  a.HexAddr,
			seen: fmt.Sprintf("%2ds", (now-a.Seen)/1000),
		}
		if a.CallsignValid.Valid() {
			r.flight = a.Callsign
		}
		if a.SquawkValid.Valid() {
			r.squawk = fmt.Sprintf("%04x", a.Squawk)
		}
		if a.AltitudeBaroValid.Valid() {
			r.altitude = fmt.Sprintf("%d", a.AltitudeBaro)
		}
		if a.GSValid.Valid() {
			r.speed = fmt.Sprintf("%.0f", a.GS)
		}
		if a.TrackValid.Valid() {
			r.heading = fmt.Sprintf("%.0f", a.Track)
		}
		if lat, lon, ok := a.Position(); ok {
			r.lat = fmt.Sprintf("%7.3f", lat)
			r.lon = fmt.Sprintf("%8.3f", lon)
		}
		rows = append(rows, r)
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].hex < rows[j].hex })
	ctx.display = rows
	ctx.displayAt = time.Now()
}

func (ctx *Context) update(g *gocui.Gui) error {
	// update time and aircraft count
	s, _ := g.View("status")
	s.Clear()
	fmt.Fprintf(s, " A/C: %02d  LAST UPDATE: %s\n",
		Green(len(ctx.display)),
		Bold(Green(ctx.displayAt.Format("2006-01-02 15:04:05"))))

	l, _ := g.View("list")
	l.Clear()

	// display aircraft list
	fmt.Fprintln(l, " ICAO ADDR  FLIGHT    SQWK   ALT    SPD  HDG      LAT       LON  SEEN")
	fmt.Fprintln(l, " =====================================================================")

	for _, r := range ctx.display {
		fmt.Fprintln(l, Sprintf(Yellow(" %6s     %-8s  %4s  %-5s  %3s  %3s  %7s  %8s  %s"),
			r.hex, r.flight, r.squawk, r.altitude, r.speed, r.heading, r.lat, r.lon, r.seen))
	}

	return nil
}

func loadConfig() track.Config {
	viper.SetDefault("receiver.lat", 0.0)
	viper.SetDefault("receiver.lon", 0.0)
	viper.SetDefault("receiver.max_range_nm", 300.0)
	viper.SetDefault("rtl_adsb.path", "rtl_adsb")
	viper.SetDefault("feed.url", "")
	viper.SetDefault("feed.exchange", "adsb-fan-exchange")
	viper.SetDefault("feed.interval", "1s")
	viper.SetDefault("metrics.addr", "")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("stats.range_histogram", false)

	viper.SetConfigName("track1090")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/track1090")
	viper.SetEnvPrefix("track1090")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "failed to read config: %v\n", err)
			os.Exit(1)
		}
	}

	cfg := track.Config{
		UserLat:    viper.GetFloat64("receiver.lat"),
		UserLon:    viper.GetFloat64("receiver.lon"),
		MaxRangeM:  viper.GetFloat64("receiver.max_range_nm") * 1852,
		RangeHisto: viper.GetBool("stats.range_histogram"),
	}
	cfg.UserLatLon = cfg.UserLat != 0 || cfg.UserLon != 0
	return cfg
}

func main() {
	cfg := loadConfig()

	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(viper.GetString("log.level")); err == nil {
		logger.SetLevel(lvl)
	}
	if f, err := os.OpenFile("track1090.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
		// the terminal belongs to the UI
		logger.SetOutput(f)
		defer f.Close()
	}

	// init ui
	g, err := gocui.NewGui(gocui.OutputNormal, false)
	if err != nil {
		log.Panicln(err)
	}

	defer g.Close()

	g.SetManagerFunc(layout)

	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		log.Panicln(err)
	}

	// init decoder and tracker
	ctx := CreateContext(cfg, logger)

	bg, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	// start receive
	handler := func(rcv rtl_adsb.ADSBMsg) {
		m, err := ctx.decoder.Decode(rcv[:], mstime(), 0)
		if err != nil {
			logger.WithError(err).Debug("frame dropped")
			return
		}
		ctx.msgs <- m
	}

	stopFunc, e := rtl_adsb.StartReceive(viper.GetString("rtl_adsb.path"), handler)

	if e != nil {
		log.Panicln("error: ", e)
	}

	go ctx.run(bg.Done(), g)

	// optional AMQP snapshot feed
	if url := viper.GetString("feed.url"); url != "" {
		pub, err := feed.NewPublisher(url, viper.GetString("feed.exchange"), logger)
		if err != nil {
			logger.WithError(err).Error("feed disabled")
		} else {
			go pub.Run(bg, viper.GetDuration("feed.interval"), func() feed.Scan {
				reply := make(chan feed.Scan, 1)
				ctx.snapshots <- reply
				return <-reply
			})
		}
	}

	// optional prometheus endpoint
	if addr := viper.GetString("metrics.addr"); addr != "" {
		go func() {
			err := metrics.Serve(addr, func() track.Stats {
				reply := make(chan track.Stats, 1)
				ctx.stats <- reply
				return <-reply
			})
			if err != nil {
				logger.WithError(err).Error("metrics endpoint failed")
			}
		}()
	}

	if err := g.MainLoop(); err != nil && !errors.Is(err, gocui.ErrQuit) {
		log.Panicln(err)
	}

	cancel()
	stopFunc()
}

func layout(g *gocui.Gui) error {
	// layout
	const maxX = 90
	_, maxY := g.Size()

	v, _ := g.SetView("status", 0, 0, maxX-2, 2, 0)
	v.Title = " STATUS "
	fmt.Fprintln(v, " A/C: --  LAST UPDATE: 0000-00-00 00:00:00")

	v, _ = g.SetView("list", 0, 3, maxX-2, maxY-1, 0)
	v.Title = " A/C "
	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}
