package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/marmos91/granula/internal/cli/health"
	"github.com/marmos91/granula/internal/cli/output"
	"github.com/marmos91/granula/internal/cli/timeutil"
	"github.com/spf13/cobra"
)

var (
	statusOutput  string
	statusPidFile string
	statusAPIPort int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the current status of the Granula server.

This command checks the server health by calling the health endpoint
and displays status, uptime, dependency health and the live queue
occupancy.

Examples:
  # Check status (uses default settings)
  granula status

  # Check status with custom API port
  granula status --api-port 9080

  # Output as JSON
  granula status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/granula/granula.pid)")
	statusCmd.Flags().IntVar(&statusAPIPort, "api-port", 8080, "API server port")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ServerStatus represents the server status information.
type ServerStatus struct {
	Running   bool          `json:"running" yaml:"running"`
	PID       int           `json:"pid,omitempty" yaml:"pid,omitempty"`
	Message   string        `json:"message" yaml:"message"`
	Healthy   bool          `json:"healthy" yaml:"healthy"`
	StartedAt string        `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string        `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Database  string        `json:"database,omitempty" yaml:"database,omitempty"`
	Storage   string        `json:"storage,omitempty" yaml:"storage,omitempty"`
	Queue     *health.Queue `json:"queue,omitempty" yaml:"queue,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	status := ServerStatus{
		Running: false,
		Healthy: false,
		Message: "Server is not running",
	}

	// Use default PID file if not specified
	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	// Check PID file first
	pidData, err := os.ReadFile(pidPath)
	if err == nil {
		pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
		if err == nil {
			// Check if process is running
			process, err := os.FindProcess(pid)
			if err == nil {
				// On Unix, FindProcess always succeeds, we need to send signal 0 to check
				err = process.Signal(syscall.Signal(0))
				if err == nil {
					status.Running = true
					status.PID = pid
				}
			}
		}
	}

	// Check health endpoint (works for both daemon and foreground mode)
	healthURL := fmt.Sprintf("http://localhost:%d/health", statusAPIPort)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(healthURL)
	if err == nil {
		defer func() { _ = resp.Body.Close() }()

		var healthResp health.Response
		if err := json.NewDecoder(resp.Body).Decode(&healthResp); err == nil {
			status.Running = true
			status.Healthy = healthResp.Healthy()
			status.StartedAt = healthResp.StartedAt
			status.Uptime = healthResp.Uptime
			status.Database = healthResp.Database
			status.Storage = healthResp.Storage
			status.Queue = healthResp.Queue
			if status.Healthy {
				status.Message = "Server is running and healthy"
			} else {
				status.Message = fmt.Sprintf("Server is running but degraded (database: %s, storage: %s)",
					healthResp.Database, healthResp.Storage)
			}
		} else {
			status.Running = true
			status.Message = "Server is running but health response invalid"
		}
	} else if status.Running {
		// PID file says running but health check failed
		status.Message = "Server process exists but health check failed"
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printStatusTable(status)
	}

	return nil
}

func printStatusTable(status ServerStatus) {
	fmt.Println()
	fmt.Println("Granula Server Status")
	fmt.Println("=====================")
	fmt.Println()

	if status.Running {
		if status.Healthy {
			fmt.Printf("  Status:     \033[32m● Running\033[0m\n")
		} else {
			fmt.Printf("  Status:     \033[33m● Running (degraded)\033[0m\n")
		}
		if status.PID != 0 {
			fmt.Printf("  PID:        %d\n", status.PID)
		}
		if status.StartedAt != "" {
			fmt.Printf("  Started:    %s\n", timeutil.FormatTime(status.StartedAt))
		}
		if status.Uptime != "" {
			fmt.Printf("  Uptime:     %s\n", timeutil.FormatUptime(status.Uptime))
		}
		if status.Database != "" {
			fmt.Printf("  Database:   %s\n", status.Database)
		}
		if status.Storage != "" {
			fmt.Printf("  Storage:    %s\n", status.Storage)
		}
		if status.Queue != nil {
			fmt.Printf("  Queue:      %d queued, %d/%d workers busy\n",
				status.Queue.Depth, status.Queue.Busy, status.Queue.Workers)
		}
	} else {
		fmt.Printf("  Status:     \033[31m○ Stopped\033[0m\n")
	}

	fmt.Println()
	fmt.Printf("  %s\n", status.Message)
	fmt.Println()
}
