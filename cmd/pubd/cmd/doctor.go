package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/brianly1003/pubd/internal/config"
	"github.com/spf13/cobra"
)

var (
	doctorJSON    bool
	doctorStrict  bool
	doctorTimeout time.Duration
)

type doctorStatus string

const (
	doctorStatusOK   doctorStatus = "ok"
	doctorStatusWarn doctorStatus = "warn"
	doctorStatusFail doctorStatus = "fail"
)

type doctorCheck struct {
	ID          string                 `json:"id"`
	Status      doctorStatus           `json:"status"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Remediation string                 `json:"remediation,omitempty"`
}

type doctorSummary struct {
	Total int `json:"total"`
	OK    int `json:"ok"`
	Warn  int `json:"warn"`
	Fail  int `json:"fail"`
}

type doctorReport struct {
	GeneratedAt string        `json:"generated_at"`
	Overall     doctorStatus  `json:"overall_status"`
	Summary     doctorSummary `json:"summary"`
	Checks      []doctorCheck `json:"checks"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run local diagnostics with remediation hints",
	Long: `Check the configuration, the platform and whether a broker is reachable.

Use --json for machine-readable output.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output machine-readable JSON")
	doctorCmd.Flags().BoolVar(&doctorStrict, "strict", false, "return non-zero on warnings")
	doctorCmd.Flags().DurationVar(&doctorTimeout, "timeout", 2*time.Second, "network check timeout")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	report := collectDoctorReport()

	out := cmd.OutOrStdout()
	if doctorJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return err
		}
	} else {
		printDoctorText(out, report)
	}

	if report.Summary.Fail > 0 {
		return fmt.Errorf("doctor found %d failing check(s)", report.Summary.Fail)
	}
	if doctorStrict && report.Summary.Warn > 0 {
		return fmt.Errorf("doctor strict mode failed with %d warning(s)", report.Summary.Warn)
	}
	return nil
}

func collectDoctorReport() doctorReport {
	checks := []doctorCheck{checkPlatform(runtime.GOOS)}

	cfg, cfgCheck := checkConfigLoad(cfgFile)
	checks = append(checks, cfgCheck)

	if cfg != nil {
		checks = append(checks, checkBrokerReachable(cfg.ListenAddress(), doctorTimeout))
		if cfg.Admin.Enabled {
			checks = append(checks, checkAdminHealth(cfg.AdminAddress(), doctorTimeout))
		}
	}

	summary := summarizeDoctorChecks(checks)
	return doctorReport{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Overall:     overallStatus(summary),
		Summary:     summary,
		Checks:      checks,
	}
}

func checkPlatform(goos string) doctorCheck {
	if goos != "linux" {
		return doctorCheck{
			ID:          "platform.epoll",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("pubd needs epoll, which %s does not provide", goos),
			Remediation: "Run pubd on Linux.",
		}
	}
	return doctorCheck{
		ID:      "platform.epoll",
		Status:  doctorStatusOK,
		Message: "epoll is available",
	}
}

func checkConfigLoad(path string) (*config.Config, doctorCheck) {
	loader := config.NewLoader(path)
	cfg, err := loader.Load()
	if err != nil {
		return nil, doctorCheck{
			ID:          "config.load",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Failed to load config: %v", err),
			Details:     map[string]interface{}{"search_paths": configSearchPaths(path)},
			Remediation: "Fix the config file, or run `pubd config init --force` to regenerate defaults.",
		}
	}

	msg := "Configuration loaded using built-in defaults and environment overrides"
	if loader.ConfigFile() != "" {
		msg = "Configuration loaded successfully"
	}
	return cfg, doctorCheck{
		ID:      "config.load",
		Status:  doctorStatusOK,
		Message: msg,
		Details: map[string]interface{}{"loaded_from": loader.ConfigFile()},
	}
}

func checkBrokerReachable(addr string, timeout time.Duration) doctorCheck {
	dialAddr := addr
	if host, port, err := net.SplitHostPort(addr); err == nil && (host == "0.0.0.0" || host == "::") {
		dialAddr = net.JoinHostPort("127.0.0.1", port)
	}

	conn, err := net.DialTimeout("tcp", dialAddr, timeout)
	if err != nil {
		return doctorCheck{
			ID:          "broker.listener",
			Status:      doctorStatusWarn,
			Message:     fmt.Sprintf("Broker is not reachable: %v", err),
			Details:     map[string]interface{}{"addr": dialAddr},
			Remediation: "Start the broker with `pubd start` and verify server.host/server.port.",
		}
	}
	_ = conn.Close()

	return doctorCheck{
		ID:      "broker.listener",
		Status:  doctorStatusOK,
		Message: "Broker is accepting connections",
		Details: map[string]interface{}{"addr": dialAddr},
	}
}

func checkAdminHealth(addr string, timeout time.Duration) doctorCheck {
	url := fmt.Sprintf("http://%s/health", addr)
	client := &http.Client{Timeout: timeout}

	resp, err := client.Get(url)
	if err != nil {
		return doctorCheck{
			ID:          "admin.health_endpoint",
			Status:      doctorStatusWarn,
			Message:     fmt.Sprintf("Health endpoint is not reachable: %v", err),
			Details:     map[string]interface{}{"url": url},
			Remediation: "Start pubd with admin.enabled: true and verify admin.host/admin.port.",
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return doctorCheck{
			ID:      "admin.health_endpoint",
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("Health endpoint returned non-200 status: %d", resp.StatusCode),
			Details: map[string]interface{}{
				"url":         url,
				"status_code": resp.StatusCode,
				"body":        strings.TrimSpace(string(body)),
			},
			Remediation: "Check broker logs (`pubd start -v`).",
		}
	}

	return doctorCheck{
		ID:      "admin.health_endpoint",
		Status:  doctorStatusOK,
		Message: "Health endpoint is reachable",
		Details: map[string]interface{}{"url": url},
	}
}

func summarizeDoctorChecks(checks []doctorCheck) doctorSummary {
	summary := doctorSummary{Total: len(checks)}
	for _, check := range checks {
		switch check.Status {
		case doctorStatusOK:
			summary.OK++
		case doctorStatusWarn:
			summary.Warn++
		case doctorStatusFail:
			summary.Fail++
		}
	}
	return summary
}

func overallStatus(summary doctorSummary) doctorStatus {
	if summary.Fail > 0 {
		return doctorStatusFail
	}
	if summary.Warn > 0 {
		return doctorStatusWarn
	}
	return doctorStatusOK
}

func printDoctorText(w io.Writer, report doctorReport) {
	fmt.Fprintf(w, "overall: %s  (ok=%d warn=%d fail=%d total=%d)\n\n",
		strings.ToUpper(string(report.Overall)),
		report.Summary.OK,
		report.Summary.Warn,
		report.Summary.Fail,
		report.Summary.Total,
	)

	for _, check := range report.Checks {
		label := "[OK]"
		switch check.Status {
		case doctorStatusWarn:
			label = "[WARN]"
		case doctorStatusFail:
			label = "[FAIL]"
		}

		fmt.Fprintf(w, "%s %s: %s\n", label, check.ID, check.Message)
		if check.Remediation != "" && check.Status != doctorStatusOK {
			fmt.Fprintf(w, "  fix: %s\n", check.Remediation)
		}
	}
}
