package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/org/rostervault/internal/codec"
	"github.com/org/rostervault/pkg/models"
)

type memberView struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	JoinDate   string `json:"join_date"`
	ExpireDate string `json:"expire_date"`
	Expired    bool   `json:"expired"`
}

func viewOf(m models.Member, now time.Time) memberView {
	return memberView{
		ID:         m.ID,
		Name:       m.Name,
		JoinDate:   m.JoinDate.Format(codec.TimeLayout),
		ExpireDate: m.ExpireDate.Format(codec.TimeLayout),
		Expired:    m.Expired(now),
	}
}

// printMembers outputs the roster in the chosen format.
func printMembers(w io.Writer, members []models.Member, now time.Time) error {
	views := make([]memberView, 0, len(members))
	for _, m := range members {
		views = append(views, viewOf(m, now))
	}
	if outputFormat == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tJOINED\tEXPIRES\tSTATUS")
	for _, v := range views {
		status := "active"
		if v.Expired {
			status = "expired"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", v.ID, v.Name, v.JoinDate, v.ExpireDate, status)
	}
	return tw.Flush()
}

func printMember(w io.Writer, m models.Member, now time.Time) {
	v := viewOf(m, now)
	printResult(w, map[string]any{
		"id":          v.ID,
		"name":        v.Name,
		"first_name":  m.FirstName(),
		"last_name":   m.LastName(),
		"join_date":   v.JoinDate,
		"expire_date": v.ExpireDate,
		"expired":     v.Expired,
	})
}

// printResult outputs a flat summary in the chosen format.
func printResult(w io.Writer, data map[string]any) {
	if outputFormat == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.Encode(data) //nolint:errcheck
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range sortedKeys(data) {
		switch val := data[k].(type) {
		case []int:
			fmt.Fprintf(tw, "%s\t%s\n", k, joinInts(val))
		default:
			fmt.Fprintf(tw, "%s\t%v\n", k, val)
		}
	}
	tw.Flush()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
