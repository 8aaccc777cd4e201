package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/numscull/go-numscull/lib/client"
	"github.com/numscull/go-numscull/lib/config"
	"github.com/numscull/go-numscull/lib/keys"
	"github.com/numscull/go-numscull/lib/server"
	"github.com/numscull/go-numscull/lib/util/logger"
	"github.com/numscull/go-numscull/lib/util/signals"
)

var log = logger.GetNumscullLogger()

var rootCmd = &cobra.Command{
	Use:   "numscull",
	Short: "numscull encrypted annotation protocol client",
	Long: `Client tooling for the numscull collaborative annotation protocol:
identity provisioning, a development server, and raw RPC access.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(config.InitConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&config.CfgFile, "config", "", "config file (default $HOME/.numscull/config.yaml)")
	pf.String("host", "127.0.0.1", "server host")
	pf.Int("port", 5111, "server port")
	pf.String("identity", "", "client identity name")
	pf.String("config-dir", "", "directory holding identity keypairs")
	pf.Duration("timeout", 0, "I/O timeout (0 uses the configured default)")

	viper.BindPFlag("host", pf.Lookup("host"))
	viper.BindPFlag("port", pf.Lookup("port"))
	viper.BindPFlag("identity", pf.Lookup("identity"))
	viper.BindPFlag("config_dir", pf.Lookup("config-dir"))
	viper.BindPFlag("timeout", pf.Lookup("timeout"))

	rootCmd.AddCommand(keygenCmd, serveCmd, listProjectsCmd, requestCmd)

	serveCmd.Flags().String("fixture", "", "YAML fixture of projects to preload")
}

func connect() (*client.Client, error) {
	cfg := config.NewClientConfigFromViper()
	if cfg.Identity == "" {
		return nil, fmt.Errorf("no identity configured; pass --identity or set it in the config file")
	}
	return client.Connect(cfg)
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Provision an identity keypair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.NewClientConfigFromViper()
		if cfg.Identity == "" {
			return fmt.Errorf("no identity configured; pass --identity")
		}
		ks := keys.NewIdentityKeystore(cfg.ConfigDir, cfg.Identity)
		pub, _, created, err := ks.Provision()
		if err != nil {
			return err
		}
		state := "existing"
		if created {
			state = "created"
		}
		fmt.Printf("%s identity %q\npublic key: %s\n",
			state, cfg.Identity, base64.StdEncoding.EncodeToString(pub[:]))
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the in-memory development server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.NewClientConfigFromViper()
		srv, err := server.New(cfg.ConfigDir, cfg.Timeout)
		if err != nil {
			return err
		}
		if fixture, _ := cmd.Flags().GetString("fixture"); fixture != "" {
			if err := srv.Store().LoadFixture(fixture); err != nil {
				return err
			}
		}
		addr, err := srv.Listen(cfg.Host, cfg.Port)
		if err != nil {
			return err
		}
		fmt.Printf("dev server listening on %s\n", addr)

		go signals.Handle()
		signals.RegisterInterruptHandler(func() {
			log.Debug("shutting down dev server")
			srv.Close()
		})

		err = srv.Serve()
		log.WithError(err).Debug("accept_loop_ended")
		return nil
	},
}

var listProjectsCmd = &cobra.Command{
	Use:   "list-projects",
	Short: "List the projects on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		defer c.Close()
		projects, err := c.ListProjects()
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("no projects")
			return nil
		}
		for _, p := range projects {
			fmt.Printf("%s\t%s\t%s\n", p.Name, p.Repository, p.OwnerIdentity)
		}
		return nil
	},
}

// formatResult pretty-prints one RPC result. Servers may omit the
// result field entirely; that renders as an empty object.
func formatResult(result json.RawMessage) (string, error) {
	if len(result) == 0 {
		return "{}", nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err != nil {
		return "", err
	}
	return pretty.String(), nil
}

var requestCmd = &cobra.Command{
	Use:   "request <method> [params-json]",
	Short: "Send one raw RPC and print the result",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var params interface{}
		if len(args) == 2 {
			if err := json.Unmarshal([]byte(args[1]), &params); err != nil {
				return fmt.Errorf("params must be valid JSON: %w", err)
			}
		}
		c, err := connect()
		if err != nil {
			return err
		}
		defer c.Close()
		result, err := c.Request(args[0], params)
		if err != nil {
			return err
		}
		out, err := formatResult(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}
