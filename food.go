package main

// Food value tiers, picked by weighted roll at spawn
const (
	FoodCommonValue   = 1
	FoodUncommonValue = 3
	FoodRareValue     = 10

	FoodUncommonChance = 0.25
	FoodRareChance     = 0.05

	DropFoodValue = 2  // value of food scattered from a dead snake
	MaxDropItems  = 40 // cap so very long snakes don't flood the world
	FoodBatchMax  = 50 // max food spawned per maintenance cycle
)

var foodColors = []string{
	"#ff5c5c", "#ffb35c", "#fff75c", "#8aff5c", "#5cffc4",
	"#5cb8ff", "#8a5cff", "#ff5cd9",
}

// Food is a single edible item.
type Food struct {
	ID    string
	Pos   Vec
	Color string
	Size  float64
	Value int
}

// rollFoodValue picks a value tier by weighted roll.
func rollFoodValue() int {
	r := randFloat()
	switch {
	case r < FoodRareChance:
		return FoodRareValue
	case r < FoodRareChance+FoodUncommonChance:
		return FoodUncommonValue
	default:
		return FoodCommonValue
	}
}

// NewFood spawns a food item at a random position away from the edges.
func NewFood(cfg GameConfig) *Food {
	value := rollFoodValue()
	return &Food{
		ID:    GenerateID(4),
		Pos:   Vec{X: randRange(20, cfg.WorldSize-20), Y: randRange(20, cfg.WorldSize-20)},
		Color: foodColors[randInt(len(foodColors))],
		Size:  foodSize(value),
		Value: value,
	}
}

// NewDropFood spawns a food item at a dead snake's former body position,
// with a little scatter so drops don't stack into a single point.
func NewDropFood(at Vec, cfg GameConfig) *Food {
	return &Food{
		ID:    GenerateID(4),
		Pos: Vec{
			X: Clamp(at.X+randRange(-15, 15), 0, cfg.WorldSize),
			Y: Clamp(at.Y+randRange(-15, 15), 0, cfg.WorldSize),
		},
		Color: foodColors[randInt(len(foodColors))],
		Size:  foodSize(DropFoodValue),
		Value: DropFoodValue,
	}
}

// Respawn replaces an eaten food in place: same slot, fresh id, position and
// tier. Keeping the slot stable means the food index never sees a deletion.
func (f *Food) Respawn(cfg GameConfig) {
	f.ID = GenerateID(4)
	f.Pos = Vec{X: randRange(20, cfg.WorldSize-20), Y: randRange(20, cfg.WorldSize-20)}
	f.Color = foodColors[randInt(len(foodColors))]
	f.Value = rollFoodValue()
	f.Size = foodSize(f.Value)
}

func foodSize(value int) float64 {
	switch {
	case value >= FoodRareValue:
		return 9
	case value >= FoodUncommonValue:
		return 6
	default:
		return 4
	}
}

// ToState converts to protocol state.
func (f *Food) ToState() FoodState {
	return FoodState{
		ID:    f.ID,
		X:     round1(f.Pos.X),
		Y:     round1(f.Pos.Y),
		Color: f.Color,
		Size:  f.Size,
		Value: f.Value,
	}
}
