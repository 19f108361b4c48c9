// Command purge-submissions runs the cascading deletion for one submission, every
// submission of an application, or every submission of a user.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"permit-portal-api/config"
	"permit-portal-api/services"

	"go.uber.org/zap"
)

func main() {
	var (
		submissionID  int
		applicationID int
		userID        int
	)
	flag.IntVar(&submissionID, "submission-id", 0, "delete a single submission")
	flag.IntVar(&applicationID, "application-id", 0, "delete every submission of an application")
	flag.IntVar(&userID, "user-id", 0, "delete every submission owned by a user")
	flag.Parse()

	selected := 0
	for _, v := range []int{submissionID, applicationID, userID} {
		if v > 0 {
			selected++
		}
	}
	if selected != 1 {
		log.Fatal("exactly one of -submission-id, -application-id or -user-id is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger, logFile := config.InitLogging(cfg.Logging)
	if logFile != nil {
		defer logFile.Close()
	}
	defer logger.Sync()

	ctx := context.Background()
	container, err := services.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise services", zap.Error(err))
	}
	defer container.Close()

	var (
		out    interface{}
		runErr error
	)
	switch {
	case submissionID > 0:
		out, runErr = container.Deletion.DeleteSubmission(ctx, submissionID)
	case applicationID > 0:
		out, runErr = container.Deletion.DeleteSubmissions(ctx, applicationID)
	default:
		out, runErr = container.Deletion.DeleteSubmissionsForUser(ctx, userID)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if out != nil {
		_ = enc.Encode(out)
	}
	if runErr != nil {
		logger.Error("purge finished with errors", zap.Error(runErr))
		os.Exit(1)
	}
}
