package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/fraudscope/internal/domain/model"
)

const (
	defaultServerURL = "http://localhost:9080"
	clientTimeout    = 10 * time.Second
)

// apiClient talks to the JSON API of a running instance.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(cmd *cobra.Command) (*apiClient, error) {
	server, err := cmd.Flags().GetString("server")
	if err != nil {
		return nil, err
	}
	if _, err := url.ParseRequestURI(server); err != nil {
		return nil, fmt.Errorf("invalid --server %q: %w", server, err)
	}
	return &apiClient{
		base: strings.TrimRight(server, "/"),
		http: &http.Client{Timeout: clientTimeout},
	}, nil
}

// do sends a request and decodes a 2xx JSON body into out.
func (c *apiClient) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &e) == nil && e.Message != "" {
			return fmt.Errorf("%s %s: %d %s: %s", method, path, resp.StatusCode, e.Code, e.Message)
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type statsView struct {
	Processor model.ProcessorStatistics `json:"processor"`
	Store     *model.StoreStatistics    `json:"store"`
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show pipeline and store statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			var st statsView
			if err := c.do(cmd.Context(), http.MethodGet, "/stats", &st); err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func printStats(w io.Writer, st statsView) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	p := st.Processor
	fmt.Fprintf(tw, "running\t%t\n", p.Running)
	fmt.Fprintf(tw, "uptime\t%s\n", time.Duration(p.UptimeSeconds*float64(time.Second)).Truncate(time.Second))
	fmt.Fprintf(tw, "processed\t%d\n", p.Processed)
	fmt.Fprintf(tw, "fraud detected\t%d (%.2f%%)\n", p.FraudDetected, p.FraudRate*100)
	fmt.Fprintf(tw, "duplicates\t%d\n", p.Duplicates)
	fmt.Fprintf(tw, "malformed\t%d\n", p.Malformed)
	fmt.Fprintf(tw, "alerts dispatched\t%d\n", p.AlertsDispatched)
	fmt.Fprintf(tw, "reconciled\t%d\n", p.Reconciled)
	fmt.Fprintf(tw, "queue depth\t%d / alerts %d\n", p.QueueDepth, p.AlertQueueDepth)
	fmt.Fprintf(tw, "workers\t%d scoring, %d alert\n", p.ScoringWorkers, p.AlertWorkers)
	if s := st.Store; s != nil {
		fmt.Fprintf(tw, "stored\t%d (%d fraud, %d high risk)\n", s.TotalTransactions, s.FraudTransactions, s.HighRiskTransactions)
		fmt.Fprintf(tw, "avg probability\t%.4f\n", s.AvgFraudProbability)
		fmt.Fprintf(tw, "open alerts\t%d\n", s.OpenAlerts)
	}
	_ = tw.Flush()
}

func alertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "List open alerts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			var alerts []model.OpenAlert
			if err := c.do(cmd.Context(), http.MethodGet, "/alerts", &alerts); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTRANSACTION\tUSER\tAMOUNT\tPROBABILITY\tCREATED")
			for _, a := range alerts {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.4f\t%s\n",
					a.ID, a.TransactionID, a.UserID, a.Amount, a.FraudProbability, a.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [alert-id]",
		Short: "Resolve an open alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id < 1 {
				return fmt.Errorf("invalid alert id %q", args[0])
			}
			c, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			if err := c.do(cmd.Context(), http.MethodPost, "/alerts/"+strconv.FormatInt(id, 10)+"/resolve", nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "alert %d resolved\n", id)
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Pull recent charges from the payment sources and score the missed ones",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			var out struct {
				Injected int `json:"injected"`
			}
			if err := c.do(cmd.Context(), http.MethodPost, "/reconcile", &out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "injected %d\n", out.Injected)
			return nil
		},
	}
}

func transactionsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List recently scored transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newAPIClient(cmd)
			if err != nil {
				return err
			}
			var records []model.TransactionRecord
			if err := c.do(cmd.Context(), http.MethodGet, "/transactions?limit="+strconv.Itoa(limit), &records); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TRANSACTION\tUSER\tAMOUNT\tPROBABILITY\tRISK\tTAGS")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.4f\t%s\t%s\n",
					r.TransactionID, r.UserID, r.Amount, r.FraudProbability, r.RiskLevel, strings.Join(r.Tags, ","))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum records")
	return cmd
}
