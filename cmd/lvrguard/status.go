package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show pool and auction status from a running engine",
		RunE:  runStatus,
	}

	statusCmd.Flags().String("api-url", "http://localhost:8080", "base URL of a running engine API")

	return statusCmd
}

type summaryView struct {
	ActiveAuctions       int    `json:"active_auctions"`
	TotalMEVRecovered    string `json:"total_mev_recovered"`
	TotalLPRewards       string `json:"total_lp_rewards"`
	OperatorCount        int    `json:"avs_operator_count"`
	UndistributedBalance string `json:"undistributed_balance"`
}

type poolView struct {
	PoolID             string `json:"pool_id"`
	TotalLiquidity     string `json:"total_liquidity"`
	Providers          int    `json:"providers"`
	AuctionsOpened     uint64 `json:"auctions_opened"`
	AuctionsSettled    uint64 `json:"auctions_settled"`
	RewardsDeposited   string `json:"rewards_deposited"`
	RewardsDistributed string `json:"rewards_distributed"`
}

type auctionView struct {
	AuctionID  string `json:"auction_id"`
	PoolID     string `json:"pool_id"`
	Status     string `json:"status"`
	Winner     string `json:"winner"`
	WinningBid string `json:"winning_bid"`
	TotalBids  uint32 `json:"total_bids"`
	SettledAt  int64  `json:"settled_at"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	apiURL, _ := cmd.Flags().GetString("api-url")
	apiURL = strings.TrimRight(apiURL, "/")
	client := &http.Client{Timeout: 10 * time.Second}

	var summary summaryView
	if err := fetchJSON(client, apiURL+"/api/auctions/summary", &summary); err != nil {
		return fmt.Errorf("fetch summary: %w", err)
	}

	fmt.Printf("Active auctions:   %d\n", summary.ActiveAuctions)
	fmt.Printf("MEV recovered:     %s ETH\n", summary.TotalMEVRecovered)
	fmt.Printf("LP rewards paid:   %s ETH\n", summary.TotalLPRewards)
	fmt.Printf("Undistributed:     %s ETH\n", summary.UndistributedBalance)
	fmt.Printf("Operators:         %d\n\n", summary.OperatorCount)

	var pools []poolView
	if err := fetchJSON(client, apiURL+"/api/pools/performance", &pools); err != nil {
		return fmt.Errorf("fetch pools: %w", err)
	}
	if len(pools) > 0 {
		fmt.Println("Pools:")
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Pool", "Liquidity", "LPs", "Opened", "Settled", "Deposited", "Distributed")
		for _, p := range pools {
			table.Append(
				shorten(p.PoolID),
				p.TotalLiquidity,
				fmt.Sprintf("%d", p.Providers),
				fmt.Sprintf("%d", p.AuctionsOpened),
				fmt.Sprintf("%d", p.AuctionsSettled),
				p.RewardsDeposited,
				p.RewardsDistributed,
			)
		}
		table.Render()
		fmt.Println()
	}

	var auctions []auctionView
	if err := fetchJSON(client, apiURL+"/api/auctions/recent", &auctions); err != nil {
		return fmt.Errorf("fetch auctions: %w", err)
	}
	if len(auctions) > 0 {
		fmt.Println("Recent auctions:")
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Auction", "Pool", "Status", "Winner", "Bid (wei)", "Bids", "Settled")
		for _, a := range auctions {
			settled := "-"
			if a.SettledAt > 0 {
				settled = time.Unix(a.SettledAt, 0).UTC().Format("01-02 15:04")
			}
			table.Append(
				shorten(a.AuctionID),
				shorten(a.PoolID),
				a.Status,
				shorten(a.Winner),
				a.WinningBid,
				fmt.Sprintf("%d", a.TotalBids),
				settled,
			)
		}
		table.Render()
	}

	return nil
}

func fetchJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func shorten(hex string) string {
	if len(hex) <= 12 {
		return hex
	}
	return hex[:8] + ".." + hex[len(hex)-4:]
}
