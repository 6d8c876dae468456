package services

import (
	"github.com/mroth/weightedrand/v2"
)

type ServiceGacha[T any] struct {
	chooser *weightedrand.Chooser[T, int]
}

// NewServiceGacha builds a chooser over integer weights. Zero weights are never picked.
func NewServiceGacha[T any](choices []weightedrand.Choice[T, int]) (*ServiceGacha[T], error) {
	chooser, err := weightedrand.NewChooser(choices...)
	if err != nil {
		return nil, newBusinessError(ReasonDrawFailed, "no valid choice: %s", err)
	}

	return &ServiceGacha[T]{chooser}, nil
}

func (service *ServiceGacha[T]) Pick() T {
	return service.chooser.Pick()
}

type SlotSymbol struct {
	Name string
	// payout multiplier when all three reels match
	Multiplier int64
	Weight     int
}

var slotSymbols = []SlotSymbol{
	{Name: "cherry", Multiplier: 3, Weight: 35},
	{Name: "lemon", Multiplier: 4, Weight: 25},
	{Name: "bell", Multiplier: 8, Weight: 20},
	{Name: "clover", Multiplier: 15, Weight: 12},
	{Name: "seven", Multiplier: 50, Weight: 6},
	{Name: "diamond", Multiplier: 100, Weight: 2},
}

func newSlotReel() (*ServiceGacha[SlotSymbol], error) {
	choices := make([]weightedrand.Choice[SlotSymbol, int], 0, len(slotSymbols))
	for _, symbol := range slotSymbols {
		choices = append(choices, weightedrand.NewChoice(symbol, symbol.Weight))
	}
	return NewServiceGacha(choices)
}

// slotMultiplier pays the symbol multiplier on three of a kind and returns the bet on a pair.
func slotMultiplier(reels []SlotSymbol) int64 {
	if len(reels) != 3 {
		return 0
	}
	a, b, c := reels[0], reels[1], reels[2]
	switch {
	case a.Name == b.Name && b.Name == c.Name:
		return a.Multiplier
	case a.Name == b.Name || b.Name == c.Name || a.Name == c.Name:
		return 1
	}
	return 0
}
