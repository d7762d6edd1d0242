package main

import (
	"context"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/cloudfly/dian-service/internal/infrastructure/messaging"
)

var (
	publishFile    string
	publishURL     string
	publishStream  string
	publishSubject string
	publishTimeout time.Duration
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a document event to JetStream",
	Long: `Publish a document event to the stream consumed by the service. The
event id is the deduplication key, so republishing within the duplicate
window is a no-op.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		event, err := readEvent(publishFile)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), publishTimeout)
		defer cancel()

		nc, err := messaging.Connect(publishURL, "dianctl", log)
		if err != nil {
			return err
		}
		defer nc.Close()

		js, err := jetstream.New(nc)
		if err != nil {
			return err
		}
		if _, err := messaging.EnsureStream(ctx, js, publishStream, publishSubject); err != nil {
			return err
		}

		subject := messaging.SubjectFor(publishSubject, event.DocumentType)
		seq, err := messaging.NewPublisher(js, subject).Publish(ctx, event)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"eventId":  event.EventID,
			"subject":  subject,
			"sequence": seq,
		})
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().StringVarP(&publishFile, "file", "f", "", "Event JSON file")
	publishCmd.Flags().StringVar(&publishURL, "nats", "nats://127.0.0.1:4222", "NATS server URL")
	publishCmd.Flags().StringVar(&publishStream, "stream", "DIAN_EVENTS", "JetStream stream name")
	publishCmd.Flags().StringVar(&publishSubject, "subject", "dian.documents.>", "Stream subject")
	publishCmd.Flags().DurationVar(&publishTimeout, "timeout", 10*time.Second, "Publish timeout")
	_ = publishCmd.MarkFlagRequired("file")
}
