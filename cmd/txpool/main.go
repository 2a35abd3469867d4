package main

import (
	"fmt"
	"os"
	"time"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ethforge/txpool-core/txpool"
	"github.com/ethforge/txpool-core/txpool/txpoolcfg"
	"github.com/ethforge/txpool-core/types"
)

var (
	chainIDFlag uint64
	baseFeeFlag uint64

	pendingPoolLimit       int
	priceBump              uint64
	retentionHours         uint64
	newlyAnnouncedCapacity int
	agingInterval          time.Duration

	devMode bool
)

func init() {
	rootCmd.PersistentFlags().Uint64Var(&chainIDFlag, "txpool.chainid", 1, "chain id every admitted transaction's own chain_id must match")
	rootCmd.PersistentFlags().Uint64Var(&baseFeeFlag, "txpool.basefee", 0, "initial base fee used to rank the dynamic range")

	rootCmd.PersistentFlags().IntVar(&pendingPoolLimit, "txpool.globalslots", txpoolcfg.DefaultConfig.PendingPoolLimit, "maximum number of transactions held in the pool before capacity eviction")
	rootCmd.PersistentFlags().Uint64Var(&priceBump, "txpool.pricebump", txpoolcfg.DefaultConfig.PriceBump, "price bump percentage required to replace an already existing transaction")
	rootCmd.PersistentFlags().Uint64Var(&retentionHours, "txpool.retentionhours", txpoolcfg.DefaultConfig.RetentionHours, "hours a transaction may sit in the pool before the aging sweep drops it regardless of priority")
	rootCmd.PersistentFlags().IntVar(&newlyAnnouncedCapacity, "txpool.newlyannouncedcap", txpoolcfg.DefaultConfig.NewlyAnnouncedCapacity, "capacity of the newly_announced dedup FIFO")
	rootCmd.PersistentFlags().DurationVar(&agingInterval, "txpool.aginginterval", txpoolcfg.DefaultConfig.AgingInterval, "how often the background aging sweep runs")

	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "use a human-readable development logger instead of the production JSON logger")
}

var rootCmd = &cobra.Command{
	Use:   "txpool",
	Short: "Run a standalone transaction pool instance",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(devMode)
		if err != nil {
			return fmt.Errorf("could not build logger: %w", err)
		}
		defer logger.Sync() //nolint:errcheck

		return run(logger)
	},
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(logger *zap.Logger) error {
	cfg := txpoolcfg.DefaultConfig
	cfg.PendingPoolLimit = pendingPoolLimit
	cfg.PriceBump = priceBump
	cfg.RetentionHours = retentionHours
	cfg.NewlyAnnouncedCapacity = newlyAnnouncedCapacity
	cfg.AgingInterval = agingInterval

	chainID := uint256.NewInt(chainIDFlag)
	pool := txpool.New(cfg, baseFeeFlag, *chainID)
	logger.Sugar().Infow("txpool started",
		"chain_id", chainIDFlag,
		"base_fee", baseFeeFlag,
		"pending_pool_limit", cfg.PendingPoolLimit,
		"price_bump", cfg.PriceBump,
	)

	sugar := logger.Sugar()
	addedID := pool.SubscribeAdded(func(tx types.Transaction) {
		sugar.Debugw("transaction added", "hash", tx.Hash().String())
	})
	defer pool.UnsubscribeAdded(addedID)

	droppedID := pool.SubscribeDropped(func(tx types.Transaction) {
		sugar.Debugw("transaction dropped", "hash", tx.Hash().String())
	})
	defer pool.UnsubscribeDropped(droppedID)

	scheduler := txpool.NewScheduler(pool, cfg.AgingInterval, logger)
	go scheduler.Run()
	defer scheduler.Stop()

	select {}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
