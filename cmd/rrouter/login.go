package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hupe1980/rrouter"
	"github.com/hupe1980/rrouter/config"
	"github.com/hupe1980/rrouter/core"
	"github.com/hupe1980/rrouter/strategy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// credentials is the login request card.
type credentials struct {
	User string
	Pass string
}

func (c credentials) Equal(other credentials) bool { return c == other }

type source struct {
	delay time.Duration
	token string
	fail  string
	off   bool
}

func (s source) load(ctx context.Context, c credentials) (string, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if s.fail != "" {
		return "", errors.New(s.fail)
	}

	return s.token, nil
}

func loginCmd() *cobra.Command {
	var (
		user, pass, policyName string
		local, remote          source
		repeat                 int
		showMetrics            bool
		timeout                time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Run the login operation against simulated local and remote sources",
		Example: `  rrouter login --policy race_local_and_remote --remote-delay 50ms --remote-fail "bad creds"
  rrouter login --policy fallback_local_then_remote --local-fail miss --repeat 5 --metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger, err := cfg.NewLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			defer logger.StartTimer("login")()

			reg := prometheus.NewRegistry()

			r, err := rrouter.New(func(o *rrouter.Options) {
				o.Config = cfg
				o.Logger = logger.WithComponent("cli")
				o.Registerer = reg
			})
			if err != nil {
				return err
			}
			defer r.Close()

			operation := "login"
			if _, ok := cfg.Operations[operation]; !ok || cmd.Flags().Changed("policy") {
				operation = policyName
			}

			if _, err := r.Kind(operation); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			out := cmd.OutOrStdout()
			card := credentials{User: user, Pass: pass}

			var (
				mu    sync.Mutex
				lines = make([]string, repeat)
			)

			g, gctx := errgroup.WithContext(ctx)

			for i := 0; i < repeat; i++ {
				i := i
				g.Go(func() error {
					leaves := map[core.StepID]core.Strategy[credentials, string]{}
					var funcs []*strategy.Func[credentials, string]

					if !local.off {
						f := rrouter.Leaf(r, operation, core.StepLocal, local.load)
						leaves[core.StepLocal] = f
						funcs = append(funcs, f)
					}
					if !remote.off {
						f := rrouter.Leaf(r, operation, core.StepRemote, remote.load)
						leaves[core.StepRemote] = f
						funcs = append(funcs, f)
					}

					token, err := rrouter.Do(gctx, r, operation, leaves, card)

					for _, f := range funcs {
						f.Wait()
					}

					var line string
					switch {
					case err == nil:
						line = fmt.Sprintf("#%d success: %s", i+1, token)
					case errors.Is(err, rrouter.ErrFailed):
						var fe *rrouter.FailureError
						errors.As(err, &fe)
						line = fmt.Sprintf("#%d failure: %s", i+1, fe.Message)
					default:
						return err
					}

					mu.Lock()
					lines[i] = line
					mu.Unlock()

					return nil
				})
			}

			if err := g.Wait(); err != nil {
				return err
			}

			for _, line := range lines {
				fmt.Fprintln(out, line)
			}

			if showMetrics {
				return printMetrics(out, reg)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "admin", "user name")
	cmd.Flags().StringVar(&pass, "pass", "root", "password")
	cmd.Flags().StringVar(&policyName, "policy", "race_local_and_remote", "dispatch policy when the config has no login operation")
	cmd.Flags().DurationVar(&local.delay, "local-delay", 0, "simulated local latency")
	cmd.Flags().DurationVar(&remote.delay, "remote-delay", 50*time.Millisecond, "simulated remote latency")
	cmd.Flags().StringVar(&local.token, "local-token", "token-1", "token returned by the local source")
	cmd.Flags().StringVar(&remote.token, "remote-token", "token-2", "token returned by the remote source")
	cmd.Flags().StringVar(&local.fail, "local-fail", "", "make the local source fail with this message")
	cmd.Flags().StringVar(&remote.fail, "remote-fail", "", "make the remote source fail with this message")
	cmd.Flags().BoolVar(&local.off, "no-local", false, "run without a local source")
	cmd.Flags().BoolVar(&remote.off, "no-remote", false, "run without a remote source")
	cmd.Flags().IntVar(&repeat, "repeat", 1, "number of concurrent operations")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print orchestration metrics afterwards")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "overall timeout (0 = none)")

	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()

	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func printMetrics(out io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}

	enc := expfmt.NewEncoder(out, expfmt.NewFormat(expfmt.TypeTextPlain))

	for _, f := range families {
		if err := enc.Encode(f); err != nil {
			return err
		}
	}

	return nil
}
