package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquiditymining/internal/blockchain/evm"
	"liquiditymining/internal/scenario"
)

func deployCommand() *cobra.Command {
	var (
		artifactPath string
		label        string
		create2      bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a compiled contract artifact and print its address",
		RunE: func(cmd *cobra.Command, args []string) error {
			if artifactPath == "" {
				artifactPath = cfg.Contracts.ProposalArtifact
			}
			if artifactPath == "" {
				return fmt.Errorf("an artifact path is required (--artifact or contracts.proposal_artifact)")
			}

			artifact, err := evm.LoadArtifact(artifactPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			signer, err := scenario.DeployerSigner(ctx, client, &cfg.Chain)
			if err != nil {
				return err
			}
			deployer := evm.NewDeployer(client, signer, logger)

			if create2 {
				if label == "" {
					label = artifact.ContractName
				}
				address, txHash, err := deployer.DeployCreate2(ctx, label, artifact.Bytecode)
				if err != nil {
					return err
				}
				logger.Info("Deployed with CREATE2",
					zap.String("contract", artifact.ContractName),
					zap.String("label", label),
					zap.String("tx_hash", txHash.Hex()))
				fmt.Printf("%s deployed to: %s\n", artifact.ContractName, address.Hex())
				return nil
			}

			address, txHash, err := deployer.Deploy(ctx, artifact.Bytecode)
			if err != nil {
				return err
			}
			logger.Info("Deployed",
				zap.String("contract", artifact.ContractName),
				zap.String("tx_hash", txHash.Hex()))
			fmt.Printf("%s deployed to: %s\n", artifact.ContractName, address.Hex())
			return nil
		},
	}

	cmd.Flags().StringVar(&artifactPath, "artifact", "", "hardhat or foundry artifact JSON")
	cmd.Flags().StringVar(&label, "label", "", "CREATE2 salt label, defaults to the contract name")
	cmd.Flags().BoolVar(&create2, "create2", false, "deploy through the deterministic deployment proxy")
	return cmd
}
