// Package generator builds arithmetic and repair story problems.
package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/verte-zerg/mathrally/internal/model"
)

// DefaultWeakFactor is the extra pick weight of a weak operation in mixed mode.
const DefaultWeakFactor = 2.0

// Generator produces randomized problems. It is not safe for concurrent use.
type Generator struct {
	rnd        *rand.Rand
	weak       map[model.Operation]struct{}
	weakFactor float64
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Generator.
func NewWithSeed(seed int64) *Generator {
	return &Generator{
		rnd:        rand.New(rand.NewSource(seed)),
		weak:       map[model.Operation]struct{}{},
		weakFactor: DefaultWeakFactor,
	}
}

// SetWeakOperations biases mixed-mode selection toward ops.
func (g *Generator) SetWeakOperations(ops []model.Operation, factor float64) {
	g.weak = make(map[model.Operation]struct{}, len(ops))
	for _, op := range ops {
		g.weak[op] = struct{}{}
	}
	if factor > 0 {
		g.weakFactor = factor
	}
}

// Next returns the next problem for a stage configuration. Mixed mode, and
// operations the difficulty does not offer, pick among the allowed operations.
func (g *Generator) Next(cfg model.GameConfiguration) model.Problem {
	op := cfg.Operation
	if cfg.Mixed || !cfg.Difficulty.Allows(op) {
		op = g.pickOperation(cfg.Difficulty.Operations())
	}
	return g.Generate(op, cfg.Difficulty)
}

func (g *Generator) pickOperation(ops []model.Operation) model.Operation {
	weights := make([]float64, len(ops))
	total := 0.0
	for i, op := range ops {
		w := 1.0
		if _, ok := g.weak[op]; ok {
			w += g.weakFactor
		}
		weights[i] = w
		total += w
	}
	r := g.rnd.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return ops[i]
		}
	}
	return ops[len(ops)-1]
}

// Generate returns a problem for an operation and difficulty.
func (g *Generator) Generate(op model.Operation, d model.Difficulty) model.Problem {
	var left, right, answer int
	switch op {
	case model.OpSubtraction:
		left, right = g.subtraction(d)
		answer = left - right
	case model.OpMultiplication:
		left, right = g.multiplication(d)
		answer = left * right
	case model.OpDivision:
		right, answer = g.division(d)
		left = right * answer
	default:
		op = model.OpAddition
		left, right = g.addition(d)
		answer = left + right
	}
	return model.Problem{Operation: op, Difficulty: d, Left: left, Right: right, Answer: answer}
}

// between returns a value in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rnd.Intn(hi-lo+1)
}

func (g *Generator) addition(d model.Difficulty) (int, int) {
	switch d {
	case model.DifficultyRookie:
		return g.between(1, 9), g.between(1, 9)
	case model.DifficultyJunior:
		// Two digits without carrying.
		aOnes := g.between(0, 5)
		a := g.between(1, 4)*10 + aOnes
		b := g.between(0, 4)*10 + g.between(1, 9-aOnes)
		return a, b
	default:
		return g.between(10, 99), g.between(1, 49)
	}
}

func (g *Generator) subtraction(d model.Difficulty) (int, int) {
	switch d {
	case model.DifficultyRookie:
		a := g.between(2, 9)
		return a, g.between(1, a-1)
	case model.DifficultyJunior:
		// Two digits without borrowing.
		aTens := g.between(2, 9)
		aOnes := g.between(1, 9)
		a := aTens*10 + aOnes
		b := g.between(0, aTens-1)*10 + g.between(1, aOnes)
		return a, b
	default:
		a := g.between(20, 99)
		return a, g.between(1, a-1)
	}
}

func (g *Generator) multiplication(d model.Difficulty) (int, int) {
	switch d {
	case model.DifficultyRookie:
		return g.between(1, 5), g.between(1, 5)
	case model.DifficultyJunior:
		return g.between(1, 5), g.between(1, 10)
	default:
		return g.between(1, 12), g.between(1, 12)
	}
}

// division returns divisor and quotient; dividends are always exact.
func (g *Generator) division(d model.Difficulty) (int, int) {
	switch d {
	case model.DifficultyRookie:
		return g.between(2, 5), g.between(1, 5)
	case model.DifficultyJunior:
		return g.between(2, 5), g.between(1, 10)
	default:
		return g.between(2, 12), g.between(1, 14)
	}
}

type storyTemplate struct {
	text    string
	context string
}

var storyTemplates = map[model.Operation][]storyTemplate{
	model.OpAddition: {
		{"Your mechanic gives you %d wrenches and then hands you %d more. How many wrenches do you have in total?", "Getting tools from the mechanic"},
		{"You find %d spare bolts in your toolbox and %d more bolts on the workbench. How many bolts do you have altogether?", "Collecting repair parts"},
		{"The parts store gives you %d spark plugs and you buy %d additional ones. How many spark plugs do you have now?", "Buying car parts"},
		{"You worked on your car for %d minutes in the morning and %d minutes in the afternoon. How many minutes did you work in total?", "Tracking repair time"},
	},
	model.OpSubtraction: {
		{"Your car's gas tank holds %d gallons. You've already used %d gallons during the rally. How many gallons are left?", "Fuel management"},
		{"You started with %d screws for your repair but dropped %d of them. How many screws do you have left?", "Lost repair parts"},
		{"The repair should take %d minutes total. You've already spent %d minutes working. How many more minutes do you need?", "Remaining repair time"},
		{"Your car needs %d new parts, but the mechanic only has %d in stock. How many parts are still needed?", "Parts shortage"},
	},
	model.OpMultiplication: {
		{"Each wheel on your car needs %d bolts. Your car has %d wheels. How many bolts do you need in total?", "Calculating total parts needed"},
		{"Each spark plug costs $%d. You need to buy %d spark plugs. How much will you spend in total?", "Calculating repair costs"},
		{"Your car has %d cylinders and each cylinder needs %d new seals. How many seals do you need altogether?", "Engine repair calculations"},
		{"You need to tighten %d bolts and each bolt requires %d full turns. How many turns will you make in total?", "Repair procedure counting"},
	},
	model.OpDivision: {
		{"You have %d screws to divide equally among %d wheels. How many screws does each wheel get?", "Equal distribution of parts"},
		{"The mechanic has %d minutes to fix %d cars. How many minutes can be spent on each car?", "Time allocation"},
		{"The parts store has %d oil filters to pack into %d boxes equally. How many filters go in each box?", "Packaging calculations"},
	},
}

// StoryProblem returns a repair story for the difficulty and operation.
// Operations the difficulty does not offer fall back to addition.
func (g *Generator) StoryProblem(d model.Difficulty, op model.Operation) model.StoryProblem {
	if !d.Allows(op) {
		op = model.OpAddition
	}
	p := g.Generate(op, d)
	templates := storyTemplates[p.Operation]
	tmpl := templates[g.rnd.Intn(len(templates))]
	return model.StoryProblem{
		Text:      fmt.Sprintf(tmpl.text, p.Left, p.Right),
		Context:   tmpl.context,
		Operation: p.Operation,
		Answer:    p.Answer,
	}
}
