package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// healthcheckCmd calls the server's own health endpoint from inside the
// container. Docker HEALTHCHECK reads the exit code, so failures are
// reported by exiting rather than through the cobra error return.
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check if the server is healthy",
	Long: `Performs a health check by calling the /api/v1/health endpoint.

This command is used by Docker HEALTHCHECK to monitor container health.

Exit codes:
  0 - Server is healthy
  1 - Server is unhealthy or unreachable
  2 - Invalid response from server`,
	RunE: runHealthcheck,
}

var (
	healthcheckTimeout int
	healthcheckURL     string
)

func init() {
	healthcheckCmd.Flags().IntVar(&healthcheckTimeout, "timeout", 5, "timeout in seconds")
	healthcheckCmd.Flags().StringVar(&healthcheckURL, "url", "", "health check URL (default: http://localhost:{SERVER_PORT}/api/v1/health)")
}

// HealthResponse mirrors the body served by the health handler.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks,omitempty"`
}

// healthEndpoint resolves the URL to check. The --url flag wins;
// otherwise the port comes from SERVER_PORT so the command agrees with
// whatever the serve command bound to.
func healthEndpoint() string {
	if healthcheckURL != "" {
		return healthcheckURL
	}
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	return fmt.Sprintf("http://localhost:%s/api/v1/health", port)
}

func runHealthcheck(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: time.Duration(healthcheckTimeout) * time.Second}

	resp, err := client.Get(healthEndpoint())
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "health endpoint unreachable: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(cmd.ErrOrStderr(), "health endpoint returned %d\n", resp.StatusCode)
		os.Exit(1)
	}

	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "malformed health response: %v\n", err)
		os.Exit(2)
	}

	// The handler can report a degraded status while the process is
	// still serving; treat anything short of healthy as a failure so
	// the orchestrator restarts us.
	if body.Status != "healthy" {
		fmt.Fprintf(cmd.ErrOrStderr(), "server reports status %q\n", body.Status)
		os.Exit(1)
	}
	return nil
}
