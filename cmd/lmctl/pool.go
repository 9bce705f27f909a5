package main

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"liquiditymining/internal/api"
	"liquiditymining/internal/service"
)

func poolCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pool <address>",
		Short: "Show the live parameters of a staking pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid pool address: %s", args[0])
			}

			ctx := cmd.Context()
			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			status, err := api.NewChainPoolReader(client, logger).PoolStatus(ctx, common.HexToAddress(args[0]))
			if err != nil {
				return err
			}

			finish := time.Unix(int64(status.PeriodFinish), 0).UTC()
			fmt.Printf("address:        %s\n", status.Address.Hex())
			fmt.Printf("owner:          %s\n", status.Owner.Hex())
			fmt.Printf("rewards token:  %s\n", status.RewardsToken.Hex())
			fmt.Printf("staking token:  %s\n", status.StakingToken.Hex())
			fmt.Printf("period finish:  %d (%s)\n", status.PeriodFinish, finish.Format(time.RFC3339))
			fmt.Printf("reward rate:    %s wei/s\n", status.RewardRate)
			fmt.Printf("total staked:   %s\n", service.FormatEther(status.TotalSupply))
			return nil
		},
	}
}
