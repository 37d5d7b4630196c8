package game

import (
	"fmt"
	"sort"

	"idlebot/core"
)

// ResolveVariant returns the variant named in the config. Variants declared
// in the config file take precedence over built-in ones of the same name.
func ResolveVariant(config *core.Config) (Variant, error) {
	name := config.Game.Variant
	if vc, ok := config.Variants[name]; ok {
		v := variantFromConfig(name, vc)
		if err := v.Validate(); err != nil {
			return Variant{}, err
		}
		return v, nil
	}
	if v, ok := BuiltinVariant(name); ok {
		return v, nil
	}

	known := BuiltinVariantNames()
	for n := range config.Variants {
		known = append(known, n)
	}
	sort.Strings(known)
	if s := core.Suggest(name, known); s != "" {
		return Variant{}, fmt.Errorf("unknown variant %q, did you mean %q?", name, s)
	}
	return Variant{}, fmt.Errorf("unknown variant %q (known: %v)", name, known)
}

func variantFromConfig(name string, vc core.VariantConfig) Variant {
	v := Variant{
		Name:           name,
		CurrencyField:  vc.CurrencyField,
		CurrencyLabel:  vc.CurrencyLabel,
		ReadyField:     vc.ReadyField,
		TimeScaleField: vc.TimeScaleField,
	}
	for _, u := range vc.Upgrades {
		v.Upgrades = append(v.Upgrades, UpgradeSpec{
			Kind:       UpgradeKind(u.Kind),
			Label:      u.Label,
			CostField:  u.CostField,
			LevelField: u.LevelField,
			Mutator:    u.Mutator,
		})
	}
	return v
}

// SchedulerConfigFrom extracts the loop settings from the bot config.
func SchedulerConfigFrom(bot core.BotConfig) SchedulerConfig {
	return SchedulerConfig{
		Mode:              bot.Mode,
		SessionDuration:   bot.SessionDuration,
		TickInterval:      bot.TickInterval,
		ReadyPollInterval: bot.ReadyPollInterval,
		ReadyTimeout:      bot.ReadyTimeout,
		GameSpeed:         bot.GameSpeed,
		Seed:              bot.Seed,
	}
}
