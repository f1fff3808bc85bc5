package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// SettlementPolicy carries the tunable knobs of the settlement engine.
// Amount percentages are expressed as fractions (0.12 == 12%).
type SettlementPolicy struct {
	UpfrontShare      float64 `mapstructure:"upfrontShare"`
	MilestoneFeeRate  float64 `mapstructure:"milestoneFeeRate"`
	CompletionFeeRate float64 `mapstructure:"completionFeeRate"`
	DuplicateWindowS  int     `mapstructure:"duplicateWindowSeconds"`
	LockWaitS         int     `mapstructure:"lockWaitSeconds"`
}

func DefaultSettlementPolicy() SettlementPolicy {
	return SettlementPolicy{
		UpfrontShare:      0.12,
		MilestoneFeeRate:  0.052666,
		CompletionFeeRate: 0.05,
		DuplicateWindowS:  60,
		LockWaitS:         10,
	}
}

func (p SettlementPolicy) UpfrontShareDec() decimal.Decimal {
	return decimal.NewFromFloat(p.UpfrontShare)
}

func (p SettlementPolicy) MilestoneFeeRateDec() decimal.Decimal {
	return decimal.NewFromFloat(p.MilestoneFeeRate)
}

func (p SettlementPolicy) CompletionFeeRateDec() decimal.Decimal {
	return decimal.NewFromFloat(p.CompletionFeeRate)
}

func (p SettlementPolicy) DuplicateWindow() time.Duration {
	return time.Duration(p.DuplicateWindowS) * time.Second
}

func (p SettlementPolicy) LockWait() time.Duration {
	return time.Duration(p.LockWaitS) * time.Second
}

// SettlementPolicyHolder exposes the current policy and hot-reloads it when the
// config file changes. Readers always see a complete, validated snapshot.
type SettlementPolicyHolder struct {
	current atomic.Value // holds SettlementPolicy
}

// NewSettlementPolicyHolder loads settlement.yml (volume mount, /etc, or cwd)
// and watches it for changes.
func NewSettlementPolicyHolder() (*SettlementPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("settlement")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/paylane/config")
	v.AddConfigPath("/etc/paylane")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PAYLANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSettlementPolicy()
	v.SetDefault("settlement.upfrontShare", defaults.UpfrontShare)
	v.SetDefault("settlement.milestoneFeeRate", defaults.MilestoneFeeRate)
	v.SetDefault("settlement.completionFeeRate", defaults.CompletionFeeRate)
	v.SetDefault("settlement.duplicateWindowSeconds", defaults.DuplicateWindowS)
	v.SetDefault("settlement.lockWaitSeconds", defaults.LockWaitS)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg SettlementPolicy
	if err := v.UnmarshalKey("settlement", &cfg); err != nil {
		return nil, err
	}
	if err := validateSettlementPolicy(cfg); err != nil {
		return nil, err
	}

	holder := &SettlementPolicyHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated SettlementPolicy
		if err := v.UnmarshalKey("settlement", &updated); err != nil {
			log.Printf("[settlement-config] reload failed: %v", err)
			return
		}
		if err := validateSettlementPolicy(updated); err != nil {
			log.Printf("[settlement-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[settlement-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticSettlementPolicyHolder wraps a fixed policy. Used by tests and by
// callers that do not want file watching.
func NewStaticSettlementPolicyHolder(p SettlementPolicy) *SettlementPolicyHolder {
	holder := &SettlementPolicyHolder{}
	holder.current.Store(p)
	return holder
}

func (h *SettlementPolicyHolder) Get() SettlementPolicy {
	return h.current.Load().(SettlementPolicy)
}

func validateSettlementPolicy(p SettlementPolicy) error {
	if p.UpfrontShare <= 0 || p.UpfrontShare >= 1 {
		return errors.New("settlement.upfrontShare must be in (0, 1)")
	}
	if p.MilestoneFeeRate < 0 || p.MilestoneFeeRate >= 1 {
		return errors.New("settlement.milestoneFeeRate must be in [0, 1)")
	}
	if p.CompletionFeeRate < 0 || p.CompletionFeeRate >= 1 {
		return errors.New("settlement.completionFeeRate must be in [0, 1)")
	}
	if p.DuplicateWindowS < 0 {
		return errors.New("settlement.duplicateWindowSeconds cannot be negative")
	}
	if p.LockWaitS <= 0 {
		return errors.New("settlement.lockWaitSeconds must be positive")
	}
	return nil
}
