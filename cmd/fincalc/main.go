package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/quantfabric/fincore/pkg/financial"
)

// Command-line calculator backed by the exact decimal engine. Arithmetic
// never touches binary floating point; mul, div, mod and round take an
// explicit precision and rounding mode.
func main() {
	op := flag.String("op", "", "operation: add, sub, mul, div, mod, round, cmp")
	a := flag.String("a", "", "left operand (decimal string)")
	b := flag.String("b", "", "right operand (decimal string, unused for round)")
	digits := flag.Int("digits", 2, "fractional digits for mul, div, mod and round")
	mode := flag.String("mode", "round", "rounding mode: ceil, floor, round, trunc")
	flag.Parse()

	if *op == "" || *a == "" {
		flag.Usage()
		os.Exit(1)
	}

	lhs, err := financial.Parse(*a)
	if err != nil {
		log.Fatalf("parse -a: %v", err)
	}
	roundMode, err := financial.ParseRoundMode(*mode)
	if err != nil {
		log.Fatalf("parse -mode: %v", err)
	}

	var rhs financial.Financial
	if *op != "round" {
		if *b == "" {
			log.Fatalf("-b is required for %s", *op)
		}
		if rhs, err = financial.Parse(*b); err != nil {
			log.Fatalf("parse -b: %v", err)
		}
	}

	switch strings.ToLower(*op) {
	case "add":
		fmt.Println(lhs.Add(rhs))
	case "sub":
		fmt.Println(lhs.Sub(rhs))
	case "mul":
		printResult(lhs.Mul(rhs, *digits, roundMode))
	case "div":
		printResult(lhs.Div(rhs, *digits, roundMode))
	case "mod":
		printResult(lhs.Mod(rhs, *digits, roundMode))
	case "round":
		printResult(lhs.Round(*digits, roundMode))
	case "cmp":
		fmt.Println(lhs.Cmp(rhs))
	default:
		log.Fatalf("unknown operation %q", *op)
	}
}

func printResult(result financial.Financial, err error) {
	if err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Println(result)
}
