// Command seismicd is the thin CLI front end for the seismic download
// orchestrator, adapted from the teacher's cmd/warpdl in structure (urfave/
// cli App with Commands/Flags, mpb progress bars) but wired to
// pkg/seismic, pkg/history and internal/control instead of the file
// download manager.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/seismic-go/seismicd/internal/control"
	"github.com/seismic-go/seismicd/internal/scheduler"
	"github.com/seismic-go/seismicd/pkg/credstore"
	"github.com/seismic-go/seismicd/pkg/history"
	"github.com/seismic-go/seismicd/pkg/logger"
	"github.com/seismic-go/seismicd/pkg/seismic"
)

var (
	version   = "dev"
	commit    = "none"
	buildType = "oss"
)

// ProviderFactories registers one seismic.ProviderFactory per provider
// name understood by this binary. The FDSN wire protocol itself is out of
// scope for pkg/seismic (spec.md §1: ProviderClient is an external
// collaborator), so this map starts empty; a real deployment imports a
// package implementing ProviderClient for its chosen providers and calls
// RegisterProvider from an init() func, the same way warplib.SchemeRouter
// is populated by scheme before use.
var ProviderFactories = map[string]seismic.ProviderFactory{}

// RegisterProvider adds a provider factory, letting a build tag or vendor
// package opt this binary into speaking to a concrete FDSN endpoint.
func RegisterProvider(name string, factory seismic.ProviderFactory) {
	ProviderFactories[name] = factory
}

func registryNames() map[string]struct{} {
	out := make(map[string]struct{}, len(ProviderFactories))
	for name := range ProviderFactories {
		out[name] = struct{}{}
	}
	return out
}

func dispatchFactory(ctx context.Context, name string) (seismic.ProviderClient, error) {
	factory, ok := ProviderFactories[name]
	if !ok {
		return nil, fmt.Errorf("seismicd: no ProviderClient registered for %q", name)
	}
	return factory(ctx, name)
}

// buildRestrictions assembles a seismic.Restrictions from the package-level
// flag vars shared by run and serve, so a scheduled serve-side run is
// restricted the same way an interactive `seismicd run` invocation is.
func buildRestrictions() (seismic.Restrictions, error) {
	if startTime == "" || endTime == "" {
		return seismic.Restrictions{}, fmt.Errorf("--start and --end are required")
	}
	start, err := time.Parse(time.RFC3339, startTime)
	if err != nil {
		return seismic.Restrictions{}, fmt.Errorf("invalid --start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, endTime)
	if err != nil {
		return seismic.Restrictions{}, fmt.Errorf("invalid --end: %w", err)
	}

	restrictions := seismic.NewDefaultRestrictions(start, end)
	restrictions.Network = network
	restrictions.Station = station
	restrictions.Location = location
	restrictions.Channel = channel
	restrictions.MinimumLength = minLength
	restrictions.MinInterstationDistanceM = minDistanceM
	restrictions.RejectChannelsWithGaps = rejectGaps
	if chunkLength != "" {
		d, err := time.ParseDuration(chunkLength)
		if err != nil {
			return seismic.Restrictions{}, fmt.Errorf("invalid --chunk-length: %w", err)
		}
		restrictions.ChunkLength = d
	}
	if err := restrictions.Validate(); err != nil {
		return seismic.Restrictions{}, err
	}
	return restrictions, nil
}

// buildDownloadOptions assembles the storage resolvers and concurrency
// knobs shared by run and serve from the package-level flag vars.
func buildDownloadOptions(handlers *seismic.Handlers) seismic.DownloadOptions {
	waveformRes := &seismic.TemplateWaveformResolver{
		Template:  outputDir + "/{network}/{station}/{network}.{station}.{location}.{channel}.{starttime}.mseed",
		EnsureDir: ensureDir,
	}
	metadataRes := &seismic.TemplateMetadataResolver{
		Template:  outputDir + "/{network}/{station}/{network}.{station}.xml",
		EnsureDir: ensureDir,
	}
	return seismic.DownloadOptions{
		WaveformStorage:  waveformRes,
		MetadataStorage:  metadataRes,
		ChunkSizeMB:      chunkSizeMB,
		ThreadsPerClient: threadsPerProv,
		MetadataThreads:  metaThreads,
		FS:               seismic.NewOSFileDeleter(),
		Handlers:         handlers,
	}
}

// buildHelper constructs a DownloadHelper from the package-level
// --provider (-p) flag and the registered ProviderFactories, warning (but not
// failing) on any provider that fails to initialize.
func buildHelper(ctx context.Context, l logger.Logger) (*seismic.DownloadHelper, error) {
	var names []string
	if len(providers.Value()) > 0 {
		names = providers.Value()
	}
	helper, initErrs := seismic.NewDownloadHelper(ctx, names, registryNames(), dispatchFactory, l)
	if initErrs != nil {
		for _, e := range initErrs.Errors {
			l.Warning("%s", e.Error())
		}
	}
	if len(helper.Providers()) == 0 {
		return nil, fmt.Errorf("no providers available (register a ProviderClient factory)")
	}
	return helper, nil
}

func runCommand(c *cli.Context) error {
	restrictions, err := buildRestrictions()
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("seismicd: %s", err), 1)
	}

	l := logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags))

	helper, err := buildHelper(context.Background(), l)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("seismicd: %s", err), 1)
	}

	p := mpb.New(mpb.WithWidth(64))
	var bar *mpb.Bar

	handlers := &seismic.Handlers{
		ProviderStart: func(provider string) {
			name := "Querying " + provider
			bar = p.New(100,
				mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟"),
				mpb.PrependDecorators(decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DidentRight})),
				mpb.AppendDecorators(decor.Percentage()),
			)
		},
		ChunkComplete: func(provider string, completed, total int) {
			if bar == nil || total == 0 {
				return
			}
			bar.SetCurrent(int64(completed * 100 / total))
		},
		ProviderDone: func(provider string, stationCount int) {
			if bar != nil {
				bar.SetCurrent(100)
			}
			l.Info("Client '%s' - done, %d station(s) retained.", provider, stationCount)
		},
	}

	opts := buildDownloadOptions(handlers)

	report, err := helper.Download(context.Background(), globalDomain{}, restrictions, opts)
	p.Wait()
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("seismicd: %s", err), 1)
	}

	fmt.Println(report.HumanSummary())
	return nil
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// globalDomain is the default unbounded seismic.Domain; a real deployment
// with a geographic restriction would supply its own (circular/
// rectangular) implementation instead.
type globalDomain struct{}

func (globalDomain) GetQueryParameters() map[string]any { return nil }

func historyCommand(c *cli.Context) error {
	store, err := history.Open(c.String("history-db"))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("seismicd: %s", err), 1)
	}
	defer store.Close()

	runs, err := store.ListRuns(c.Int("limit"))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("seismicd: %s", err), 1)
	}
	for _, r := range runs {
		fmt.Printf("%s\t%s\t%s\t%d downloaded, %d discarded\n",
			r.RunID, r.StartedAt.Format(time.RFC3339), strings.Join(r.Providers, ","), r.DownloadedBytes, r.DiscardedBytes)
	}
	return nil
}

// credsCommand manages stored per-provider basic-auth credentials for
// restricted FDSN access, so a run command never has to take a password on
// its command line.
func credsCommand(c *cli.Context) error {
	store := credstore.NewKeyring()
	provider := c.Args().Get(1)
	if provider == "" {
		return cli.NewExitError("seismicd: creds requires a provider name, e.g. `seismicd creds set IRIS`", 1)
	}

	switch c.Args().Get(0) {
	case "set":
		user := c.String("username")
		pass := c.String("password")
		if user == "" || pass == "" {
			return cli.NewExitError("seismicd: creds set requires --username and --password", 1)
		}
		if err := store.Set(provider, credstore.Credential{Username: user, Password: pass}); err != nil {
			return cli.NewExitError(fmt.Sprintf("seismicd: %s", err), 1)
		}
		return nil
	case "delete":
		if err := store.Delete(provider); err != nil {
			return cli.NewExitError(fmt.Sprintf("seismicd: %s", err), 1)
		}
		return nil
	case "show":
		cred, err := store.Get(provider)
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("seismicd: %s", err), 1)
		}
		fmt.Printf("%s: username=%s\n", provider, cred.Username)
		return nil
	default:
		return cli.NewExitError("seismicd: creds subcommand must be one of set/show/delete", 1)
	}
}

// daemonRunner bridges internal/control.Runner to pkg/seismic.DownloadHelper,
// launching a Download for each control-plane-started or scheduler-fired run
// name against the restrictions/options this daemon was started with, and
// recording the outcome back through ctrl.RecordCompletion/sched.Done.
//
// ctrl and sched are set after construction (see serveCommand) since the
// Server needs runner as a Config field before it exists, and the Scheduler's
// onTrigger closure needs the already-built Server — a construction-order
// cycle neither control.Config nor scheduler.New's signature can express on
// their own.
type daemonRunner struct {
	helper       *seismic.DownloadHelper
	domain       seismic.Domain
	restrictions seismic.Restrictions
	opts         seismic.DownloadOptions
	logger       logger.Logger

	ctrl  *control.Server
	sched *scheduler.Scheduler

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func (r *daemonRunner) Start(ctx context.Context, runName string) error {
	runCtx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.cancels[runName] = cancel
	r.mu.Unlock()

	go func() {
		report, err := r.helper.Download(runCtx, r.domain, r.restrictions, r.opts)
		if err != nil {
			r.logger.Warning("run %q failed: %s", runName, err.Error())
		}

		r.mu.Lock()
		delete(r.cancels, runName)
		r.mu.Unlock()

		if r.ctrl != nil {
			r.ctrl.RecordCompletion(runName, report, err)
		}
		if r.sched != nil {
			r.sched.Done(runName)
		}
	}()

	_ = ctx // Start itself returns immediately; cancellation flows through runCtx.
	return nil
}

func (r *daemonRunner) Cancel(runName string) bool {
	r.mu.Lock()
	cancel, ok := r.cancels[runName]
	r.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

func serveCommand(c *cli.Context) error {
	store, err := history.Open(c.String("history-db"))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("seismicd: %s", err), 1)
	}
	defer store.Close()

	restrictions, err := buildRestrictions()
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("seismicd: %s", err), 1)
	}

	l := logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	helper, err := buildHelper(ctx, l)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("seismicd: %s", err), 1)
	}

	runner := &daemonRunner{
		helper:       helper,
		domain:       globalDomain{},
		restrictions: restrictions,
		opts:         buildDownloadOptions(nil),
		logger:       l,
		cancels:      map[string]context.CancelFunc{},
	}

	srv := control.New(control.Config{
		Secret:  c.String("secret"),
		Version: fmt.Sprintf("%s-%s", version, buildType),
		History: store,
		Runner:  runner,
	})
	defer srv.Close()
	runner.ctrl = srv

	sched := scheduler.New(ctx, func(runName string) {
		srv.MarkRunning(runName)
		if err := runner.Start(ctx, runName); err != nil {
			l.Warning("scheduled run %q failed to start: %s", runName, err.Error())
		}
	})
	runner.sched = sched
	srv.SetScheduler(sched)

	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", srv.ServeHTTP)
	mux.HandleFunc("/ws", srv.ServeWS)

	fmt.Printf("seismicd: control plane listening on %s (no --secret given means every request is rejected)\n", c.String("listen"))
	return http.ListenAndServe(c.String("listen"), mux)
}

func main() {
	app := cli.App{
		Name:      "seismicd",
		HelpName:  "seismicd",
		Usage:     "federated seismic waveform/metadata download orchestrator",
		Version:   fmt.Sprintf("%s-%s", version, buildType),
		UsageText: "seismicd <command> [arguments...]",
		Commands: []cli.Command{
			{
				Name:                   "run",
				Usage:                  "query providers and download matching waveforms/metadata",
				Action:                 runCommand,
				Flags:                  runFlags,
				UseShortOptionHandling: true,
			},
			{
				Name:                   "history",
				Usage:                  "list past runs recorded in the sqlite archive",
				Action:                 historyCommand,
				Flags:                  historyFlags,
				UseShortOptionHandling: true,
			},
			{
				Name:                   "serve",
				Usage:                  "start the JSON-RPC control plane",
				Action:                 serveCommand,
				Flags:                  serveFlags,
				UseShortOptionHandling: true,
			},
			{
				Name:      "creds",
				Usage:     "set/show/delete a provider's stored FDSN credential",
				ArgsUsage: "<set|show|delete> <provider>",
				Action:    credsCommand,
				Flags:     credsFlags,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Printf("seismicd: %s\n", err.Error())
		os.Exit(1)
	}
}
