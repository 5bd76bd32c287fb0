// Command tradegate runs the decision and execution gateway against a
// simulated execution layer. Decisions arrive on stdin as one JSON
// object per line; plain-text command lines drive the human layer:
//
//	approve <decision_id> [notes]
//	reject <decision_id> [reason]
//	review                     acknowledge the loss-streak review
//	block <reason>             stop admitting new decisions
//	unblock                    lift a manual block
//	halt <reason>              trip the kill switch
//	clear <operator_ack>       clear the kill switch
//
// Usage:
//
//	tradegate --config config.yaml
//	tradegate --pair BTC_USDT --autonomy copilot
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/tradegate/config"
	"github.com/vadiminshakov/tradegate/internal/clients"
	"github.com/vadiminshakov/tradegate/internal/domain"
	"github.com/vadiminshakov/tradegate/internal/gateway"
	"github.com/vadiminshakov/tradegate/internal/notify"
	"github.com/vadiminshakov/tradegate/internal/services/approval"
	"github.com/vadiminshakov/tradegate/internal/services/halt"
	"github.com/vadiminshakov/tradegate/internal/services/session"
	"github.com/vadiminshakov/tradegate/internal/storage/decisionlog"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// envelope is a decision pushed by the analysis layer, together with
// the account snapshot the risk gate evaluates against.
type envelope struct {
	Pair       string  `json:"pair"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Entry      string  `json:"entry"`
	Stop       string  `json:"stop"`
	Target     string  `json:"target"`
	Size       string  `json:"size"`
	Leverage   int     `json:"leverage"`
	Reasoning  string  `json:"reasoning"`
	Snapshot   struct {
		Equity        string `json:"equity"`
		Exposure      string `json:"exposure"`
		OpenPositions int    `json:"open_positions"`
	} `json:"snapshot"`
	Outcome *struct {
		DecisionID string `json:"decision_id"`
		PnL        string `json:"pnl"`
	} `json:"outcome,omitempty"`
}

func main() {
	_ = godotenv.Load()

	conf, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	store, err := decisionlog.NewStore(conf.DecisionLogDir)
	if err != nil {
		logger.Fatal("failed to open decision log", zap.Error(err))
	}
	defer store.Close()

	limiter, err := session.NewLimiter(conf.Session, logger)
	if err != nil {
		logger.Fatal("failed to create session limiter", zap.Error(err))
	}

	executor := clients.NewSimExecutor(conf.SimSlippagePct, logger)
	kill := halt.New(executor, logger)
	events := notify.NewDispatcher(logger, notify.SinkFunc(func(ctx context.Context, event any) error {
		logger.Debug("gateway event", zap.Any("event", event))
		return nil
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coordinators := make(map[string]*gateway.Coordinator, len(conf.Pairs))
	feeds := make(map[string]chan envelope, len(conf.Pairs))
	g, ctx := errgroup.WithContext(ctx)

	for _, pair := range conf.Pairs {
		coordinator, err := gateway.New(pair, gateway.Deps{
			Config:   conf,
			Limiter:  limiter,
			Kill:     kill,
			Log:      store,
			Executor: executor,
			Events:   events,
			Logger:   logger,
		})
		if err != nil {
			logger.Fatal("failed to create coordinator", zap.Error(err))
		}
		defer coordinator.Close()

		feed := make(chan envelope, 16)
		coordinators[pair.String()] = coordinator
		feeds[pair.String()] = feed

		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case env, ok := <-feed:
					if !ok {
						return nil
					}
					handle(ctx, coordinator, env, logger)
				}
			}
		})
		logger.Info("started", zap.String("pair", pair.String()))
	}

	g.Go(func() error {
		defer func() {
			for _, feed := range feeds {
				close(feed)
			}
		}()

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}

			if strings.HasPrefix(line, "{") {
				var env envelope
				if err := json.Unmarshal([]byte(line), &env); err != nil {
					logger.Warn("malformed decision line", zap.Error(err))
					continue
				}
				feed, ok := feeds[env.Pair]
				if !ok {
					logger.Warn("unknown pair", zap.String("pair", env.Pair))
					continue
				}
				feed <- env
				continue
			}

			command(line, coordinators, kill, limiter, logger)
		}
		return scanner.Err()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(err.Error())
	}
}

func handle(ctx context.Context, coordinator *gateway.Coordinator, env envelope, logger *zap.Logger) {
	if env.Outcome != nil {
		pnl, err := decimal.NewFromString(env.Outcome.PnL)
		if err != nil {
			logger.Warn("malformed outcome pnl", zap.Error(err))
			return
		}
		coordinator.OnOutcome(domain.Outcome{
			DecisionID: env.Outcome.DecisionID,
			Pair:       pairFromString(env.Pair),
			PnL:        pnl,
		})
		return
	}

	action, ok := domain.ParseAction(env.Action)
	if !ok {
		logger.Warn("unknown action", zap.String("action", env.Action))
		return
	}

	decision := domain.NewDecision(
		pairFromString(env.Pair), action, env.Confidence,
		parseDecimal(env.Entry), parseDecimal(env.Stop), parseDecimal(env.Target), parseDecimal(env.Size),
		env.Leverage, env.Reasoning, time.Now())

	snap := domain.AccountSnapshot{
		Equity:        parseDecimal(env.Snapshot.Equity),
		Exposure:      parseDecimal(env.Snapshot.Exposure),
		OpenPositions: env.Snapshot.OpenPositions,
	}

	disp, err := coordinator.OnDecision(ctx, decision, snap)
	if err != nil {
		logger.Error("decision handling failed", zap.Error(err))
		return
	}
	logger.Info("decision routed",
		zap.String("decision_id", decision.ID),
		zap.String("disposition", disp.Kind.String()),
		zap.String("reason", disp.Reason))
}

func command(line string, coordinators map[string]*gateway.Coordinator, kill *halt.KillSwitch, limiter *session.Limiter, logger *zap.Logger) {
	fields := strings.Fields(line)
	verb := fields[0]
	rest := ""
	if len(fields) > 1 {
		rest = strings.Join(fields[1:], " ")
	}

	switch verb {
	case "halt":
		kill.Trip(rest)
	case "clear":
		if err := kill.Clear(rest); err != nil {
			logger.Warn("kill switch not cleared", zap.Error(err))
		}
	case "review":
		limiter.AcknowledgeReview()
	case "block":
		limiter.Block(rest)
	case "unblock":
		limiter.Unblock()
	case "approve", "reject":
		if len(fields) < 2 {
			logger.Warn("missing decision id", zap.String("command", verb))
			return
		}
		id := fields[1]
		notes := strings.Join(fields[2:], " ")
		verdict := domain.Approve(notes)
		if verb == "reject" {
			verdict = domain.Reject(notes)
		}
		for _, coordinator := range coordinators {
			_, err := coordinator.Resolve(id, verdict)
			if errors.Is(err, approval.ErrNotFound) {
				continue
			}
			if err != nil {
				logger.Warn("resolution not applied", zap.String("decision_id", id), zap.Error(err))
			}
			return
		}
		logger.Warn("no pending approval matched", zap.String("decision_id", id))
	default:
		logger.Warn("unknown command", zap.String("command", verb))
	}
}

func pairFromString(s string) domain.Pair {
	parts := strings.Split(s, "_")
	if len(parts) != 2 {
		return domain.Pair{From: s}
	}
	return domain.Pair{From: parts[0], To: parts[1]}
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
