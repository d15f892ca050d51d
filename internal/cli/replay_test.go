package cli

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thUser005/project-stocks-profits/internal/config"
	"github.com/thUser005/project-stocks-profits/internal/models"
	"github.com/thUser005/project-stocks-profits/internal/quotes"
	"github.com/thUser005/project-stocks-profits/pkg/utils"
)

type stubSignalSource struct {
	signals []models.Signal
}

func (s *stubSignalSource) Fetch(ctx context.Context, date string) ([]models.Signal, error) {
	return s.signals, nil
}

func replayTestConfig(concurrency int) *config.Config {
	return &config.Config{
		Tracker: config.TrackerConfig{
			Concurrency:           concurrency,
			CandleIntervalMinutes: 3,
		},
		Session: config.SessionConfig{
			ResetTime: "09:00",
			BuyStart:  "09:15",
			BuyEnd:    "14:30",
			SellStart: "13:00",
			SellEnd:   "15:15",
		},
	}
}

// chartBody renders a winning day in the provider's wire format: the
// second bar crosses entry, the third crosses target.
func chartBody(date string) string {
	day, _ := time.ParseInLocation("2006-01-02", date, utils.IndiaLocation)
	bar := func(minuteOffset int, o, h, l, c float64) string {
		ts := day.Add(10*time.Hour + time.Duration(minuteOffset)*time.Minute).Unix()
		return fmt.Sprintf("[%d,%g,%g,%g,%g,1000]", ts, o, h, l, c)
	}
	return fmt.Sprintf(`{"candles":[%s,%s,%s]}`,
		bar(0, 96, 98, 95, 97),
		bar(3, 97, 101, 96, 100),
		bar(6, 100, 107, 99, 106),
	)
}

func TestReplayDayBoundedFanOut(t *testing.T) {
	const date = "2025-06-18"
	const limit = 3

	var inFlight, maxInFlight int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			max := atomic.LoadInt32(&maxInFlight)
			if current <= max || atomic.CompareAndSwapInt32(&maxInFlight, max, current) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)

		fmt.Fprint(w, chartBody(date))
	}))
	defer server.Close()

	var signalList []models.Signal
	for i := 0; i < 12; i++ {
		signalList = append(signalList, models.Signal{
			Symbol:   fmt.Sprintf("SYM%d", i),
			Open:     96,
			Entry:    100,
			Target:   106,
			Stoploss: 99,
			Quantity: 1,
		})
	}

	app := &App{
		Config:  replayTestConfig(limit),
		Logger:  zerolog.Nop(),
		Quotes:  quotes.NewClient(quotes.Config{BaseURL: server.URL}, zerolog.Nop()),
		Signals: &stubSignalSource{signals: signalList},
	}

	rows, err := replayDay(context.Background(), app, date, nil)
	require.NoError(t, err)
	require.Len(t, rows, len(signalList))

	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxInFlight)), limit,
		"history fetches exceeded the concurrency cap")

	for i, row := range rows {
		assert.Equal(t, signalList[i].Symbol, row.Symbol, "row order must follow signal order")
		assert.Equal(t, string(models.PhaseExited), row.Phase)
		assert.Equal(t, string(models.ExitTarget), row.ExitReason)
		assert.True(t, row.Profit)
	}
}

func TestReplayDaySkipsFailedSymbol(t *testing.T) {
	const date = "2025-06-18"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/BROKEN") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, chartBody(date))
	}))
	defer server.Close()

	app := &App{
		Config: replayTestConfig(2),
		Logger: zerolog.Nop(),
		Quotes: quotes.NewClient(quotes.Config{BaseURL: server.URL}, zerolog.Nop()),
		Signals: &stubSignalSource{signals: []models.Signal{
			{Symbol: "GOOD", Open: 96, Entry: 100, Target: 106, Stoploss: 99},
			{Symbol: "BROKEN", Open: 96, Entry: 100, Target: 106, Stoploss: 99},
		}},
	}

	rows, err := replayDay(context.Background(), app, date, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "GOOD", rows[0].Symbol)
}

func TestReplayDaySymbolFilter(t *testing.T) {
	const date = "2025-06-18"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartBody(date))
	}))
	defer server.Close()

	app := &App{
		Config: replayTestConfig(2),
		Logger: zerolog.Nop(),
		Quotes: quotes.NewClient(quotes.Config{BaseURL: server.URL}, zerolog.Nop()),
		Signals: &stubSignalSource{signals: []models.Signal{
			{Symbol: "AAA", Open: 96, Entry: 100, Target: 106, Stoploss: 99},
			{Symbol: "BBB", Open: 96, Entry: 100, Target: 106, Stoploss: 99},
		}},
	}

	rows, err := replayDay(context.Background(), app, date, []string{"bbb"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "BBB", rows[0].Symbol)
}
