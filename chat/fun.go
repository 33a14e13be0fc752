package chat

import (
	"context"
	"fmt"
	"math/rand"
)

// Pizza topping pools for !pizza. Pineapple and Mushrooms are the rare bad
// draws with their own punishment lines.
var (
	pizzaSauces    = []string{"Tomato", "BBQ", "Garlic", "Buffalo", "Pesto"}
	pizzaCheeses   = []string{"Mozzarella", "Cheddar", "Parmesan", "Smoked Gouda"}
	pizzaToppings1 = []string{"Pepperoni", "Ham", "Chicken", "Bacon", "Sausage", "Pineapple"}
	pizzaToppings2 = []string{"Onions", "Peppers", "Olives", "Jalapenos", "Sweetcorn", "Mushrooms"}
)

const badToppingProbability = 0.01

// pickTopping draws uniformly, except badItem which gets badToppingProbability
// and the rest share the remainder. Returns the pick and whether it was the
// bad item.
func pickTopping(pool []string, badItem string, badProb float64) (string, bool) {
	if badItem == "" || len(pool) < 2 {
		return pool[rand.Intn(len(pool))], false //nolint:gosec // G404: game randomness
	}
	if rand.Float64() < badProb { //nolint:gosec // G404: game randomness
		return badItem, true
	}
	for {
		pick := pool[rand.Intn(len(pool))] //nolint:gosec // G404: game randomness
		if pick != badItem {
			return pick, false
		}
	}
}

func (b *Bot) cmdChipsAndGravy(_ context.Context, c Context, _ []string) {
	c.Reply(`rabble_ron: "god save the queen!"`)
}

func (b *Bot) cmdDickSize(_ context.Context, c Context, _ []string) {
	var message string
	switch c.Author().Login {
	case "riddlerrr":
		message = "You have the biggest dick in all the land, coming in at 20 inches long! 🍆😏"
	case "quecrad":
		message = "If there is anything we know about Quecrad, it's that he has the nickname 'long dong silver' for a reason. 😏 He won't leak the length though."
	case "ryzaha":
		message = "There's a reason we call him the 'human tripod'. 😬 Packing something the length of his leg! Won't let us measure though. 😩"
	default:
		size := 0.001 + rand.Float64()*(10-0.001) //nolint:gosec // G404: game randomness
		message = fmt.Sprintf("Your dick size is %.2f inches long.", size)
	}
	c.Reply(message)
}

func (b *Bot) cmdPizza(_ context.Context, c Context, _ []string) {
	sauce, _ := pickTopping(pizzaSauces, "", 0)
	cheese, _ := pickTopping(pizzaCheeses, "", 0)
	topping1, topping1Bad := pickTopping(pizzaToppings1, "Pineapple", badToppingProbability)
	topping2, topping2Bad := pickTopping(pizzaToppings2, "Mushrooms", badToppingProbability)

	c.Reply(fmt.Sprintf("Your pizza combo is %s sauce, %s cheese with %s and %s.",
		sauce, cheese, topping1, topping2))

	switch {
	case topping1Bad && topping2Bad:
		c.Reply("I literally cannot think of a worse pizza... be gone for 2 hours!")
	case topping1Bad:
		c.Reply(fmt.Sprintf("%s is a terrible choice... have 2 minutes to think about what you've done", topping1))
	case topping2Bad:
		c.Reply(fmt.Sprintf("%s is a terrible choice... have 2 minutes to think about what you've done", topping2))
	}
}

func (b *Bot) cmdIP(_ context.Context, c Context, _ []string) {
	c.Reply("01:21:D0:1")
}

func (b *Bot) cmdBBM(_ context.Context, c Context, _ []string) {
	c.Reply("0121DO1")
}

func (b *Bot) cmdBuild(_ context.Context, c Context, _ []string) {
	c.Reply("Last Epoch build: https://maxroll.gg/last-epoch/build-guides/torment-warlock-guide")
}
