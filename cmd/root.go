// Copyright 2026 The Samply Community
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samply/cohortctl/fhir"
	"github.com/samply/cohortctl/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// config layers flags over COHORTCTL_* environment variables over the
// config file.
var config = viper.New()

var client *fhir.Client

func createClient() error {
	server := config.GetString("server")
	if server == "" {
		return errors.WithHint(errors.New("missing the base URL of the FHIR server"),
			"set --server or COHORTCTL_SERVER")
	}
	fhirServerBaseUrl, err := url.ParseRequestURI(server)
	if err != nil {
		return errors.Wrap(err, "could not parse server's base URL")
	}

	if config.GetBool("insecure") {
		client = fhir.NewClientInsecure(*fhirServerBaseUrl, clientAuth())
	} else if caCert := config.GetString("certificate-authority"); caCert != "" {
		client, err = fhir.NewClientCa(*fhirServerBaseUrl, clientAuth(), caCert)
		if err != nil {
			return err
		}
	} else {
		client = fhir.NewClient(*fhirServerBaseUrl, clientAuth())
	}
	return nil
}

func clientAuth() fhir.Auth {
	user, password, token := config.GetString("user"), config.GetString("password"), config.GetString("token")
	if user != "" && password != "" {
		return fhir.BasicAuth{User: user, Password: password}
	} else if token != "" {
		return fhir.TokenAuth{Token: token}
	}
	return nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cohortctl",
	Short: "Describe OHDSI Cohort Definitions from the Command Line",
	Long: `cohortctl is a command line tool to work with OHDSI ATLAS style cohort
definitions written in YAML.

You can describe definitions in human readable form, resolve their concept
sets against an OMOP vocabulary and publish them as FHIR Library resources.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Initialize(config.GetString("log-level"), config.GetBool("log-json"))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorMessage(err))
		os.Exit(1)
	}
}

// errorMessage appends the hints attached to err below its message.
func errorMessage(err error) string {
	builder := strings.Builder{}
	builder.WriteString(strings.TrimRight(err.Error(), "\n"))
	for _, hint := range errors.GetAllHints(err) {
		builder.WriteString("\nhint: " + hint)
	}
	return builder.String()
}

func initConfig() {
	if cfgFile != "" {
		config.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		config.SetConfigFile(filepath.Join(home, ".cohortctl.yaml"))
	}
	config.SetEnvPrefix("COHORTCTL")
	config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	config.AutomaticEnv()

	if err := config.ReadInConfig(); err != nil {
		if cfgFile != "" {
			fmt.Fprintf(os.Stderr, "could not read config file %s: %v\n", cfgFile, err)
		}
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cohortctl.yaml)")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
	flags.Bool("log-json", false, "log in JSON instead of console format")
	flags.Bool("no-progress", false, "don't show progress bar")
	flags.String("vocabulary-driver", "sqlite", "driver of the vocabulary database: sqlite or pgx")
	flags.String("vocabulary-dsn", "", "data source name of the OMOP vocabulary database")
	flags.String("server", "", "the base URL of the FHIR server to use")
	flags.BoolP("insecure", "k", false, "allow insecure server connections when using SSL")
	flags.String("certificate-authority", "", "path to a cert file for the certificate authority")
	flags.String("user", "", "user information for basic authentication")
	flags.String("password", "", "password information for basic authentication")
	flags.String("token", "", "bearer token for authentication")

	_ = config.BindPFlags(flags)
}
