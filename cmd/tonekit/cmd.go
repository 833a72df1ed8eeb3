package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tonekit/tonekit/config"
	"github.com/tonekit/tonekit/internal"
)

var (
	log = internal.GetLogger()

	cfgFile     string
	showVersion bool
	dumpConfig  bool
)

var cmd = &cobra.Command{
	Use:   "tonekit",
	Short: "tonekit rewrites sentences in a user's own chat style using their past messages",
	Run:   func(cmd *cobra.Command, args []string) { run() },
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server (default)",
	Run:   func(cmd *cobra.Command, args []string) { run() },
}

var dumpJSONSchemaCmd = &cobra.Command{
	Use:     "json-schema",
	Short:   "Generates JSON Schema for tonekit's configuration file",
	Example: "tonekit json-schema > tonekit_config_schema.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := config.JSONSchema()
		if err != nil {
			return err
		}
		fmt.Println(string(schema))
		return nil
	},
}

func init() {
	cmd.AddCommand(serveCmd)
	cmd.AddCommand(ingestCmd)
	cmd.AddCommand(dumpJSONSchemaCmd)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default config.yaml)")
	cmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "print version number")
	cmd.PersistentFlags().BoolVarP(&dumpConfig, "dump-config", "d", false, "dump config")

	ingestCmd.Flags().StringVarP(&ingestCollection, "collection", "c", "", "collection to ingest into (required)")
	ingestCmd.Flags().StringVarP(&ingestSender, "sender", "s", "", "only ingest messages from this sender")
	ingestCmd.Flags().BoolVar(&ingestMerge, "merge", false, "also store merged runs of consecutive messages")
	ingestCmd.Flags().IntVar(&ingestSize, "size", 0, "maximum number of rows to read, 0 for all")
	ingestCmd.Flags().Int64Var(&ingestChatroomID, "chatroom-id", 0, "chatroom id, derived from the file name when 0")
	_ = ingestCmd.MarkFlagRequired("collection")
}

// Execute executes the root cobra command.
func Execute() {
	log.SetLevel(logrus.InfoLevel)

	err := cmd.Execute()

	if err != nil {
		os.Exit(1)
	}
}
