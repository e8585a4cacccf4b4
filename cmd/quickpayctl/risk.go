package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/service"
	"github.com/spf13/cobra"
)

func riskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Merchant risk scoring",
	}
	cmd.AddCommand(riskScoreCmd())
	return cmd
}

func riskScoreCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a merchant snapshot read from a JSON file (- for stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := readMerchant(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			res := service.NewRiskScorer().Score(m)
			return renderRisk(cmd.OutOrStdout(), outputFormat, res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Merchant JSON file")
	return cmd
}

func readMerchant(stdin io.Reader, path string) (*model.Merchant, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var m model.Merchant
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode merchant: %w", err)
	}
	return &m, nil
}
