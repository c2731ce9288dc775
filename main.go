package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mqy/minichat/auth"
	"github.com/mqy/minichat/relay"
	"github.com/mqy/minichat/session"
	"github.com/mqy/minichat/store"
	"github.com/mqy/minichat/ws"
)

// envConfig holds the flag defaults, overridable by environment variables.
type envConfig struct {
	Identity      string        `env:"MINICHAT_IDENTITY"`
	LoginFile     string        `env:"MINICHAT_LOGIN_FILE" envDefault:".minichat-login"`
	BackendURL    string        `env:"MINICHAT_BACKEND_URL" envDefault:"http://localhost:8080"`
	WsURL         string        `env:"MINICHAT_WS_URL" envDefault:"ws://localhost:8080/ws/websocket"`
	StompLogin    string        `env:"MINICHAT_STOMP_LOGIN"`
	StompPasscode string        `env:"MINICHAT_STOMP_PASSCODE"`
	ConnectWait   time.Duration `env:"MINICHAT_CONNECT_TIMEOUT" envDefault:"15s"`
	MetricsAddr   string        `env:"MINICHAT_METRICS_ADDR"`
	KafkaBrokers  string        `env:"MINICHAT_KAFKA_BROKERS"`
	KafkaTopic    string        `env:"MINICHAT_KAFKA_TOPIC" envDefault:"minichat-envelopes"`
	RelayMaxBytes int           `env:"MINICHAT_RELAY_MAX_BYTES" envDefault:"4096"`
}

func loadEnv() envConfig {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		// flags still work; a bad variable only loses its default.
		fmt.Fprintf(os.Stderr, "minichat: parse env: %v\n", err)
	}
	return cfg
}

var envCfg = loadEnv()

var (
	flagIdentity   = flag.String("identity", envCfg.Identity, "login name; saved to --login-file for later runs")
	flagLoginFile  = flag.String("login-file", envCfg.LoginFile, "file that keeps the login name")
	flagLogout     = flag.Bool("logout", false, "forget the saved login name and exit")
	flagBackendURL = flag.String("backend-url", envCfg.BackendURL, "chat backend REST base url")
	flagWsURL      = flag.String("ws-url", envCfg.WsURL, "chat backend STOMP websocket url")

	flagStompLogin    = flag.String("stomp-login", envCfg.StompLogin, "STOMP login header, optional")
	flagStompPasscode = flag.String("stomp-passcode", envCfg.StompPasscode, "STOMP passcode header, optional")
	flagConnectWait   = flag.Duration("connect-timeout", envCfg.ConnectWait, "max time to connect and load history")

	flagMetricsAddr = flag.String("metrics-addr", envCfg.MetricsAddr, "serve prometheus /metrics on ip:port, disabled when empty")

	flagKafkaBrokers  = flag.String("kafka-brokers", envCfg.KafkaBrokers, "comma separated kafka brokers to relay received messages to, disabled when empty")
	flagKafkaTopic    = flag.String("kafka-topic", envCfg.KafkaTopic, "kafka topic of the relay")
	flagRelayMaxBytes = flag.Int("relay-max-bytes", envCfg.RelayMaxBytes, "max bytes of one relayed record")
)

func main() {
	flag.Parse()

	// NOTE: os.Exit() does not call defers.
	os.Exit(run())
}

func run() int {
	defer glog.Flush()

	if v := validateFlags(); v > 0 {
		return v
	}

	loginFile := &auth.FileClient{Path: *flagLoginFile}
	if *flagLogout {
		if err := loginFile.Logout(); err != nil {
			return errorf("logout: %v", err)
		}
		glog.Infof("logged out")
		return 0
	}

	identity, err := auth.Chain{auth.StaticClient(*flagIdentity), loginFile}.Identity()
	if errors.Is(err, auth.ErrNoIdentity) {
		return errorf("not logged in: run with --identity <name>")
	} else if err != nil {
		return errorf("identity: %v", err)
	}
	if *flagIdentity != "" {
		if err := loginFile.Login(identity); err != nil {
			glog.Warningf("save login: %v", err)
		}
	}

	backend, err := store.NewClient(*flagBackendURL, nil)
	if err != nil {
		return errorf("--backend-url: %v", err)
	}
	transport, err := ws.NewConn(*flagWsURL, ws.Options{
		Login:    *flagStompLogin,
		Passcode: *flagStompPasscode,
	})
	if err != nil {
		return errorf("--ws-url: %v", err)
	}

	sess := session.New(identity, transport, backend)
	glog.Infof("%s: starting", sess)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var metricsServer *http.Server
	if *flagMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(
			prometheus.DefaultGatherer,
			promhttp.HandlerOpts{},
		))
		metricsServer = &http.Server{Addr: *flagMetricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); errors.Is(err, http.ErrServerClosed) {
				glog.Infof("metrics server closed")
			} else if err != nil {
				glog.Errorf("error serve metrics: %v", err)
			}
		}()
	}

	var relayDoneC chan struct{}
	if *flagKafkaBrokers != "" {
		writer := relay.NewKafkaWriter(strings.Split(*flagKafkaBrokers, ","), *flagKafkaTopic)
		r := relay.New(identity, writer, relay.DefaultQueueSize, *flagRelayMaxBytes)
		sess.OnChange(r.Observe)
		relayDoneC = make(chan struct{}, 1)
		go r.Run(ctx, relayDoneC)
	}

	con := newConsole(sess, backend, os.Stdin, os.Stdout)
	sess.OnChange(con.onChange)
	sess.Presence().SetHandler(con.onPresence)
	sess.SetInputResetHandler(con.onInputReset)

	startCtx, startCancel := context.WithTimeout(ctx, *flagConnectWait)
	if err := sess.LoadHistory(startCtx); err != nil {
		glog.Warningf("load history: %v", err)
	}
	err = sess.Start(startCtx)
	startCancel()
	if err != nil {
		cancel()
		if relayDoneC != nil {
			<-relayDoneC
		}
		return errorf("start: %v", err)
	}

	con.printf("connected as %s, /help for commands", identity)

	consoleDoneC := make(chan struct{})
	go func() {
		con.run(ctx)
		close(consoleDoneC)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		glog.Infof("received signal `%s` stopping", sig.String())
	case <-consoleDoneC:
		glog.Infof("console closed, stopping")
	}

	sess.Stop()
	cancel()
	if relayDoneC != nil {
		<-relayDoneC
	}
	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = metricsServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	glog.Info("minichat exited")
	return 0
}

func validateFlags() int {
	if *flagLoginFile == "" {
		return errorf("--login-file is required")
	}
	if *flagLogout {
		return 0
	}

	if err := validateURL(*flagBackendURL, "http", "https"); err != nil {
		return errorf("--backend-url: %v", err)
	}
	if err := validateURL(*flagWsURL, "ws", "wss"); err != nil {
		return errorf("--ws-url: %v", err)
	}
	if *flagConnectWait <= 0 {
		return errorf("--connect-timeout must be positive")
	}

	if *flagMetricsAddr != "" {
		if _, _, err := net.SplitHostPort(*flagMetricsAddr); err != nil {
			return errorf("--metrics-addr: %v", err)
		}
	}

	if *flagKafkaBrokers != "" {
		if *flagKafkaTopic == "" {
			return errorf("--kafka-topic is required with --kafka-brokers")
		}
		if *flagRelayMaxBytes <= 0 {
			return errorf("--relay-max-bytes must be positive")
		}
	}
	return 0
}

func validateURL(s string, schemes ...string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	for _, scheme := range schemes {
		if u.Scheme == scheme {
			if u.Host == "" {
				return fmt.Errorf("`%s` has no host", s)
			}
			return nil
		}
	}
	return fmt.Errorf("`%s`: scheme must be one of %v", s, schemes)
}

func errorf(fmt string, args ...interface{}) int {
	glog.Errorf(fmt, args...)
	return 1
}
