// Package main implements a load generator for the table service that browses and maintains
// a product catalog with a configurable request rate.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AntonStoeckl/tableservice-go/example/products"
	"github.com/AntonStoeckl/tableservice-go/example/shared/shell"
	"github.com/AntonStoeckl/tableservice-go/tableservice"
)

const (
	scenarioBrowsing = "browsing"
	scenarioCatalog  = "catalog"

	operationTimeout = 5 * time.Second
)

var nameFragments = []string{"Shoe", "Hat", "Coat", "Scarf", "Glove", "Sock", "Belt", "Bag"}
var colors = []string{"Red", "Blue", "Green", "Black", "White"}

// LoadGenerator orchestrates load against a ProductService
// with configurable request rates and browsing/catalog scenarios.
type LoadGenerator struct {
	service          *products.ProductService
	config           Config
	metricsCollector tableservice.MetricsCollector

	// Rate limiting
	ticker   *time.Ticker
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Metrics and state
	maxProductID atomic.Int64
	requestCount int64
	errorCount   int64
	startTime    time.Time
	mu           sync.RWMutex
}

// NewLoadGenerator creates a new LoadGenerator. metricsCollector may be nil.
func NewLoadGenerator(service *products.ProductService, config Config, metricsCollector tableservice.MetricsCollector) *LoadGenerator {
	return &LoadGenerator{
		service:          service,
		config:           config,
		metricsCollector: metricsCollector,
		stopChan:         make(chan struct{}),
	}
}

// Seed inserts the initial products in one transaction.
func (lg *LoadGenerator) Seed(ctx context.Context) error {
	count, err := lg.service.GetCount(ctx)
	if err != nil {
		return err
	}

	lg.maxProductID.Store(count)

	return lg.service.InSavepoint(ctx, func(ctx context.Context) error {
		for range lg.config.InitialProducts {
			if err := lg.insertProduct(ctx); err != nil {
				return err
			}
		}

		return nil
	})
}

// Start begins load generation with the configured request rate.
// It runs until the context is cancelled or Stop() is called.
func (lg *LoadGenerator) Start(ctx context.Context) error {
	lg.mu.Lock()
	lg.startTime = time.Now()
	lg.requestCount = 0
	lg.errorCount = 0
	lg.mu.Unlock()

	// Calculate an interval between requests based on the target rate
	interval := time.Second / time.Duration(lg.config.Rate)
	lg.ticker = time.NewTicker(interval)
	defer lg.ticker.Stop()

	slog.Info("Load generator starting", "rate", lg.config.Rate, "interval", interval.String(), "goroutines", runtime.NumGoroutine())

	lg.wg.Add(1)
	go lg.metricsReporter(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-lg.stopChan:
			return nil

		case <-lg.ticker.C:
			lg.wg.Add(1)
			go lg.executeScenario(ctx)
		}
	}
}

// Stop gracefully shuts down the load generator.
func (lg *LoadGenerator) Stop(ctx context.Context) error {
	lg.stopOnce.Do(func() { close(lg.stopChan) })

	// Wait for all goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		lg.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		lg.logStats("Final stats")
		return nil
	case <-ctx.Done():
		lg.logStats("Final stats")
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

// executeScenario runs a single scenario based on the configured weights.
func (lg *LoadGenerator) executeScenario(ctx context.Context) {
	defer lg.wg.Done()

	opCtx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	scenarioType := lg.selectScenario()

	var err error
	switch scenarioType {
	case scenarioBrowsing:
		err = lg.runBrowsingScenario(opCtx)
	default:
		err = lg.runCatalogScenario(opCtx)
	}

	lg.mu.Lock()
	lg.requestCount++
	if err != nil && !errors.Is(err, context.Canceled) {
		lg.errorCount++
		slog.Warn("Scenario error", "scenario", scenarioType, "error", err.Error())
	}
	lg.mu.Unlock()
}

// selectScenario chooses a scenario type based on configured weights.
func (lg *LoadGenerator) selectScenario() string {
	r := rand.Intn(100) //nolint:gosec // weak random is acceptable for load generation

	if r < lg.config.ScenarioWeights[0] {
		return scenarioBrowsing
	}

	return scenarioCatalog
}

// runBrowsingScenario searches, shows a product and resolves its slug in both directions.
func (lg *LoadGenerator) runBrowsingScenario(ctx context.Context) error {
	filter := lg.service.CreateFilter()
	filter.Name = randomOf(nameFragments)

	if _, err := lg.service.Search(ctx, filter, tableservice.NewPaging(1, 20)); err != nil {
		return err
	}

	if _, err := lg.service.SearchCount(ctx, filter); err != nil {
		return err
	}

	id := lg.randomProductID()
	if id == 0 {
		return nil
	}

	if _, _, err := lg.service.GetByID(ctx, id); err != nil {
		return err
	}

	slug, found, err := lg.service.SlugOut(ctx, tableservice.SlugOfID(id))
	if err != nil || !found {
		return err
	}

	_, _, err = lg.service.SlugIn(ctx, slug)

	return err
}

// runCatalogScenario adds a product or changes the stock of an existing one, retrying transient failures.
func (lg *LoadGenerator) runCatalogScenario(ctx context.Context) error {
	if rand.Intn(2) == 0 { //nolint:gosec // weak random is acceptable for load generation
		return lg.withRetry(ctx, "insert", lg.insertProduct)
	}

	id := lg.randomProductID()
	if id == 0 {
		return nil
	}

	return lg.withRetry(ctx, "update", func(ctx context.Context) error {
		_, err := lg.service.Update(ctx, id, tableservice.Record{"stock": rand.Int63n(50) + 1}) //nolint:gosec // weak random is acceptable for load generation
		return err
	})
}

func (lg *LoadGenerator) insertProduct(ctx context.Context) error {
	id, err := lg.service.Insert(ctx, tableservice.Record{
		"name":     randomOf(colors) + " " + randomOf(nameFragments),
		"brand_id": rand.Int63n(10) + 1, //nolint:gosec // weak random is acceptable for load generation
		"stock":    rand.Int63n(50),     //nolint:gosec // weak random is acceptable for load generation
	})
	if err != nil {
		return err
	}

	for {
		current := lg.maxProductID.Load()
		if id <= current || lg.maxProductID.CompareAndSwap(current, id) {
			return nil
		}
	}
}

func (lg *LoadGenerator) withRetry(ctx context.Context, operation string, fn shell.RetryableFunc) error {
	options := []shell.RetryOption{shell.WithMaxAttempts(4)}
	if lg.metricsCollector != nil {
		options = append(options, shell.WithMetrics(lg.metricsCollector, operation))
	}

	_, err := shell.RetryWithExponentialBackoff(ctx, fn, options...)

	return err
}

func (lg *LoadGenerator) randomProductID() int64 {
	maxID := lg.maxProductID.Load()
	if maxID <= 0 {
		return 0
	}

	return rand.Int63n(maxID) + 1 //nolint:gosec // weak random is acceptable for load generation
}

func randomOf(values []string) string {
	return values[rand.Intn(len(values))] //nolint:gosec // weak random is acceptable for load generation
}

// metricsReporter logs statistics periodically.
func (lg *LoadGenerator) metricsReporter(ctx context.Context) {
	defer lg.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-lg.stopChan:
			return
		case <-ticker.C:
			lg.logStats("Stats")
		}
	}
}

func (lg *LoadGenerator) logStats(msg string) {
	lg.mu.RLock()
	duration := time.Since(lg.startTime)
	requests := lg.requestCount
	errorCount := lg.errorCount
	lg.mu.RUnlock()

	if duration <= 0 || requests == 0 {
		return
	}

	slog.Info(msg,
		"requests", requests,
		"duration", duration.Truncate(time.Second).String(),
		"rps", fmt.Sprintf("%.1f", float64(requests)/duration.Seconds()),
		"errors", errorCount,
		"error_rate_pct", fmt.Sprintf("%.1f", float64(errorCount)/float64(requests)*100),
		"goroutines", runtime.NumGoroutine(),
	)
}
