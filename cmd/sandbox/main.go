package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"strategy-sandbox/config"
	"strategy-sandbox/infrastructure/logger"
	"strategy-sandbox/metrics"
	"strategy-sandbox/sim"
	"strategy-sandbox/strategy"
)

// 在合成行情上回放配置中的所有策略，不会连接真实交易所。
// 用法：
//
//	go run ./cmd/sandbox -config configs/sandbox.yaml
//	go run ./cmd/sandbox -config configs/sandbox.yaml -watch -metricsAddr :9100
func main() {
	cfgPath := flag.String("config", "configs/sandbox.yaml", "配置文件路径")
	watch := flag.Bool("watch", false, "配置变更后重新回放，直到收到退出信号")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，覆盖配置；留空使用配置")
	list := flag.Bool("list", false, "打印所有策略类型及默认参数后退出")
	quiet := flag.Bool("quiet", false, "关闭进度条")
	flag.Parse()

	if *list {
		if err := printKinds(os.Stdout); err != nil {
			log.Fatalf("打印策略参数失败: %v", err)
		}
		return
	}

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	base, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer base.Close()
	lg := base.Named("sandbox", zap.String("run_id", uuid.NewString()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := metrics.New(cfg.Metrics)
	addr := cfg.Metrics.Addr
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	if addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, rec); err != nil {
				lg.Error("metrics server stopped", zap.Error(err))
			}
		}()
		lg.Info("metrics enabled", zap.String("addr", addr))
	}

	if !*watch {
		if err := replay(ctx, cfg, lg, rec, !*quiet); err != nil {
			lg.Error("replay failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	updates := make(chan config.AppConfig, 1)
	watcher := config.Watcher{Path: *cfgPath, Logger: lg.Logger}
	go func() {
		err := watcher.Start(ctx, func(next config.AppConfig) {
			// 只保留最新一份
			select {
			case <-updates:
			default:
			}
			updates <- next
		})
		if err != nil {
			lg.Error("config watcher stopped", zap.Error(err))
		}
	}()

	current := cfg
	for {
		notify(lg, daemon.SdNotifyReady)
		if err := replay(ctx, current, lg, rec, !*quiet); err != nil && !errors.Is(err, context.Canceled) {
			lg.Error("replay failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			notify(lg, daemon.SdNotifyStopping)
			lg.Info("shutting down")
			return
		case current = <-updates:
			notify(lg, daemon.SdNotifyReloading)
			lg.Info("config reloaded, replaying",
				zap.Int("strategies", len(current.Strategies)),
				zap.Int("bars", current.Replay.Bars))
		}
	}
}

// replay 运行一轮：构建沙盒与 Context，按标的生成行情并回放，最后撤掉残留挂单。
func replay(ctx context.Context, cfg config.AppConfig, lg *logger.Logger, rec *metrics.Recorder, progress bool) error {
	sb := sim.NewSandboxFromConfig(cfg.Venue)
	contexts, err := sim.BuildContexts(cfg, sb, sim.BuildOptions{Logger: lg, Metrics: rec, BarClock: true})
	if err != nil {
		return err
	}

	feeds := make([]sim.Feed, 0)
	for _, symbol := range symbolsOf(cfg) {
		feeds = append(feeds, sim.SyntheticFeed(symbol, cfg.Replay))
	}
	total := int64(cfg.Replay.Bars * len(feeds))
	bar := progressbar.DefaultSilent(total)
	if progress {
		bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetElapsedTime(true),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetDescription("Replaying..."),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	runner := sim.Runner{
		Contexts:   contexts,
		Matcher:    sb,
		Logger:     lg,
		OnProgress: func(string) { _ = bar.Add(1) },
	}
	start := time.Now()
	rep, runErr := runner.Run(ctx, feeds)
	_ = bar.Finish()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sim.Shutdown(shutdownCtx, contexts); err != nil {
		lg.Warn("shutdown incomplete", zap.Error(err))
	}
	sb.Wait()

	sum := sim.Summarize(contexts)
	lg.Info("replay finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("orders", rep.Orders),
		zap.Int("rejected", rep.Rejected),
		zap.Int("matched", rep.Matched),
		zap.Int("fills", sum.Fills),
		zap.Float64("commission", sum.Commission),
		zap.Float64("realizedNet", sum.RealizedNet))
	printReport(os.Stdout, rep, sum, contexts)
	return runErr
}

// symbolsOf 返回配置中出现的全部标的（去重、排序）。
func symbolsOf(cfg config.AppConfig) []string {
	seen := make(map[string]struct{})
	for _, sc := range cfg.Strategies {
		for _, s := range sc.Symbols {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func printReport(w io.Writer, rep sim.Report, sum sim.Summary, contexts []*strategy.Context) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STRATEGY\tSYMBOL\tBARS\tORDERS\tFILLS\tREJECTS\tTIMEOUTS\tCOMMISSION\tREALIZED_NET\tPOSITIONS")
	for _, c := range contexts {
		st := c.Stats()
		ls := c.Ledger().Summary()
		positions := ""
		for _, sym := range c.Ledger().Symbols() {
			if net := c.Ledger().NetPosition(sym); net != 0 {
				positions += fmt.Sprintf("%s:%d ", sym, net)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%.2f\t%.2f\t%s\n",
			c.Strategy().Name(), c.Symbol(), st.Bars, st.Orders, st.Fills, st.Rejects, st.Timeouts,
			ls.Commission, ls.RealizedNet, positions)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "total: orders=%d rejected=%d matched=%d fills=%d gross=%.2f commission=%.2f net=%.2f\n",
		sum.Orders, rep.Rejected, rep.Matched, sum.Fills, sum.RealizedGross, sum.Commission, sum.RealizedNet)
}

func printKinds(w io.Writer) error {
	for _, kind := range config.Kinds() {
		params, err := strategy.DefaultParams(kind)
		if err != nil {
			return err
		}
		raw, err := yaml.Marshal(params)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "# %s\n%s\n", kind, raw)
	}
	return nil
}

func notify(lg *logger.Logger, state string) {
	// 非 systemd 环境下 sent=false 且 err=nil
	if _, err := daemon.SdNotify(false, state); err != nil {
		lg.Warn("sd_notify failed", zap.String("state", state), zap.Error(err))
	}
}
