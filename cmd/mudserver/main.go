package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mythosmud/mudserver/internal/adminapi"
	"github.com/mythosmud/mudserver/internal/apperr"
	"github.com/mythosmud/mudserver/internal/auth"
	"github.com/mythosmud/mudserver/internal/broker"
	"github.com/mythosmud/mudserver/internal/combat"
	"github.com/mythosmud/mudserver/internal/combatscript"
	"github.com/mythosmud/mudserver/internal/command"
	"github.com/mythosmud/mudserver/internal/config"
	"github.com/mythosmud/mudserver/internal/lifecycle"
	"github.com/mythosmud/mudserver/internal/look"
	"github.com/mythosmud/mudserver/internal/npcdata"
	"github.com/mythosmud/mudserver/internal/party"
	"github.com/mythosmud/mudserver/internal/persist"
	"github.com/mythosmud/mudserver/internal/persist/memory"
	"github.com/mythosmud/mudserver/internal/playerservice"
	"github.com/mythosmud/mudserver/internal/prototype"
	"github.com/mythosmud/mudserver/internal/session"
	"github.com/mythosmud/mudserver/internal/spellbook"
	"github.com/mythosmud/mudserver/internal/subject"
	"github.com/mythosmud/mudserver/internal/tick"
	"github.com/mythosmud/mudserver/internal/transport"
	"github.com/mythosmud/mudserver/internal/worldmodel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("  ┌───────────────────────────────────────────┐")
	fmt.Println("  │            mudserver  v0.1.0               │")
	fmt.Println("  │     a real-time text MUD game server       │")
	fmt.Println("  └───────────────────────────────────────────┘")
	fmt.Println()
	fmt.Printf("  server: %s (id: %d)\n\n", serverName, serverID)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  ── %s %s\n", title, strings.Repeat("─", lineLen))
}

func printOK(msg string) {
	fmt.Printf("  ✓ %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  ▶ %s\n", msg)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

// selfCharacterResolver treats the authenticated user id as the player id
// directly and looks the character's current room up through
// persistence. A deployment with a separate account/character split
// would replace this with a resolver backed by its own account table.
type selfCharacterResolver struct {
	persistence worldmodel.Persistence
}

func (r *selfCharacterResolver) ResolveCharacter(ctx context.Context, userID string) (string, string, error) {
	p, err := r.persistence.GetPlayerByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if p == nil {
		return "", "", apperr.New(apperr.Unauthenticated, "no character for user %q", userID)
	}
	return p.ID, p.RoomID, nil
}

// deps collects every wired collaborator the accept loop needs to stand
// up one connection's handler context, mirroring the teacher's
// handler.Deps struct.
type deps struct {
	lifecycle    *lifecycle.Lifecycle
	sessions     *session.Manager
	pipeline     *command.Pipeline
	persistence  worldmodel.Persistence
	npcs         *npcdata.Table
	prototypes   *prototype.Registry
	spellbook    *spellbook.Table
	combat       *combat.Engine
	script       *combatscript.Engine
	look         *look.Engine
	party        *party.Coordinator
	xpAwarder    *playerservice.XPAwarder
	shuttingDown *atomic.Bool
	log          *zap.Logger
}

func run() error {
	cfgPath := "config/server.toml"
	if p := os.Getenv("MUDSERVER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// Persistence: postgres in production, in-memory for local/dev runs.
	printSection("persistence")
	var (
		store worldmodel.Persistence
		db    *persist.DB
	)
	switch cfg.Database.Mode {
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err = persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			cancel()
			return fmt.Errorf("database: %w", err)
		}
		pgStore, err := persist.NewStore(ctx, db)
		cancel()
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		store = pgStore
		printOK("connected to postgres, migrations applied")
	default:
		store = memory.New()
		printOK("running with the in-memory persistence adapter")
	}
	fmt.Println()

	// Static data tables.
	printSection("data")
	npcTable, err := npcdata.Load(cfg.Data.NPCFile)
	if err != nil {
		return fmt.Errorf("load npc data: %w", err)
	}
	printOK(fmt.Sprintf("loaded %d npc templates", npcTable.Count()))

	protoRegistry, err := prototype.Load(cfg.Data.PrototypeFile)
	if err != nil {
		return fmt.Errorf("load prototypes: %w", err)
	}
	printOK(fmt.Sprintf("loaded %d item prototypes", protoRegistry.Count()))

	spellTable, err := spellbook.Load(cfg.Data.SpellbookFile)
	if err != nil {
		return fmt.Errorf("load spellbook: %w", err)
	}
	printOK(fmt.Sprintf("loaded %d spells", spellTable.Count()))
	fmt.Println()

	// Core collaborators.
	reg := subject.New(
		subject.WithMaxLength(cfg.Subject.MaxLength),
		subject.WithStrictAlphabet(cfg.Subject.StrictAlphabet),
		subject.WithCacheEnabled(cfg.Subject.CacheEnabled),
		subject.WithMetricsEnabled(cfg.Subject.MetricsEnabled),
	)
	b := broker.New(reg, nil, log)
	sessions := session.New(b, cfg, log)
	gate := auth.New(cfg.Auth.SigningKey, cfg.Auth.TokenLifetimeSeconds, cfg.Auth.RateLimitAttempts, cfg.Auth.RateLimitWindow)
	lc := lifecycle.New(gate, sessions, &selfCharacterResolver{persistence: store}, log)

	xpAwarder := &playerservice.XPAwarder{Persistence: store}
	combatEngine := combat.New(b, combat.XPTable(npcTable.XPValues()), xpAwarder, cfg.Combat.IdleCleanupSeconds, log)
	scriptEngine, err := combatscript.NewEngine("", log)
	if err != nil {
		return fmt.Errorf("combat script engine: %w", err)
	}
	lookEngine := look.New(store, npcTable, protoRegistry, sessions)
	partyCoordinator := party.New()

	pipeline := command.New(cfg.Command.MaxLength)
	command.RegisterDefaults(pipeline)

	// Maintenance ticker.
	runner := tick.NewRunner()
	runner.Register(&tick.MaintenanceSystem{Combat: combatEngine, Gate: gate, Log: log})
	runner.Register(&tick.MetricsSystem{Registry: reg, Log: log})
	stopTick := make(chan struct{})
	tickDone := runner.Start(30*time.Second, stopTick)

	// Transport (C13): websocket endpoint.
	printSection("transport")
	listener := transport.NewListener(cfg.Network.InQueueSize, cfg.Network.OutQueueSize, cfg.Network.ReadTimeout, cfg.Network.WriteTimeout, log)

	var shuttingDown atomic.Bool
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", listener.ServeHTTP)
	gameServer := &http.Server{Addr: cfg.Network.BindAddress, Handler: mux}

	adminRouter := adminapi.New(reg, gate, log)
	adminServer := &http.Server{Addr: cfg.Network.AdminAddress, Handler: adminRouter.Handler()}

	d := &deps{
		lifecycle:    lc,
		sessions:     sessions,
		pipeline:     pipeline,
		persistence:  store,
		npcs:         npcTable,
		prototypes:   protoRegistry,
		spellbook:    spellTable,
		combat:       combatEngine,
		script:       scriptEngine,
		look:         lookEngine,
		party:        partyCoordinator,
		xpAwarder:    xpAwarder,
		shuttingDown: &shuttingDown,
		log:          log,
	}
	go acceptLoop(ctx, listener, d)

	printOK(fmt.Sprintf("game websocket listening on %s", cfg.Network.BindAddress))
	printOK(fmt.Sprintf("admin api listening on %s", cfg.Network.AdminAddress))
	printReady("server ready")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gameServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shuttingDown.Store(true)
		close(stopTick)
		<-tickDone

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = gameServer.Shutdown(shutdownCtx)
		_ = adminServer.Shutdown(shutdownCtx)
		if db != nil {
			db.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("mudserver: shutdown complete")
	return nil
}

// acceptLoop drains newly upgraded connections and runs each one's
// login-then-dispatch loop on its own goroutine.
func acceptLoop(ctx context.Context, listener *transport.Listener, d *deps) {
	for {
		select {
		case <-ctx.Done():
			return
		case conn, ok := <-listener.NewConns():
			if !ok {
				return
			}
			go handleConnection(ctx, conn, d)
		}
	}
}

// handleConnection expects the first inbound line to be "auth <token>",
// performs login, then dispatches every subsequent line through the
// command pipeline until the connection closes.
func handleConnection(ctx context.Context, conn *transport.Conn, d *deps) {
	lines := conn.Lines()
	first, ok := <-lines
	if !ok {
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(first, "auth "))
	sourceKey := fmt.Sprintf("conn-%d", conn.ID())

	_, playerID, err := d.lifecycle.Login(ctx, conn, token, sourceKey)
	if err != nil {
		conn.Send(broker.Envelope{Kind: "auth_failed", Timestamp: time.Now(), Payload: map[string]any{"error": err.Error()}})
		conn.Close("auth_failed")
		return
	}
	conn.Send(broker.Envelope{Kind: "auth_ok", PlayerID: playerID, Timestamp: time.Now()})

	hc := &command.HandlerContext{
		PlayerID: playerID,
		RoomID: func() string {
			p, err := d.persistence.GetPlayerByID(ctx, playerID)
			if err != nil || p == nil {
				return ""
			}
			return p.RoomID
		},
		Persistence: d.persistence,
		NPCRuntime:  d.npcs,
		Prototypes:  d.prototypes,
		Grace:       d.sessions,
		Sessions:    d.sessions,
		Combat:      d.combat,
		Look:        d.look,
		Party:       d.party,
		Script:      d.script,
		Spellbook:   d.spellbook,
		NPCs:        d.npcs,
		XP:          combat.XPTable(d.npcs.XPValues()),
		XPAwarder:   d.xpAwarder,
		Log:         d.log,
	}

	for line := range lines {
		result, err := d.pipeline.Dispatch(ctx, hc, line, d.shuttingDown.Load(), d.sessions.IsInGrace(playerID))
		if err != nil {
			conn.Send(broker.Envelope{Kind: "command_error", PlayerID: playerID, Timestamp: time.Now(), Payload: renderErr(err)})
			continue
		}
		conn.Send(broker.Envelope{Kind: "command_result", PlayerID: playerID, Timestamp: time.Now(), Payload: map[string]any{"text": result.Text, "data": result.Data}})
	}

	d.lifecycle.TransportClosed(playerID, session.ReasonNetworkDrop)
}

func renderErr(err error) map[string]any {
	if appErr, ok := err.(*apperr.Error); ok {
		return map[string]any{"kind": appErr.Kind, "message": appErr.Error()}
	}
	return map[string]any{"kind": apperr.Internal, "message": err.Error()}
}
