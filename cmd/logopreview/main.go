package main

import (
	"fmt"
)

// ANSI color helpers
const (
	teal  = "\033[38;2;43;179;163m"
	gray  = "\033[38;5;242m"
	white = "\033[1;37m"
	reset = "\033[0m"
	bold  = "\033[1m"
	dim   = "\033[2m"
)

func main() {
	info1 := white + "ThinkChat " + gray + "v0.1.0" + reset
	info2 := gray + "api.openai.com · gpt-4o-mini" + reset

	fmt.Println()
	fmt.Println(bold + "═══ Pick a logo ═══" + reset)

	// ── Option A: Thought bubble ──
	fmt.Println()
	fmt.Println(dim + "Option A — Thought bubble" + reset)
	fmt.Println()
	fmt.Printf("   %s▄▀▀▀▀▀▄%s\n", gray, reset)
	fmt.Printf("   %s▌%s %s∙ ∙%s %s▐%s   %s\n", gray, reset, teal, reset, gray, reset, info1)
	fmt.Printf("   %s▀▄▄▄▄▄▀%s   %s\n", gray, reset, info2)
	fmt.Printf("      %s∘%s\n", teal, reset)
	fmt.Printf("     %s∘%s\n", teal, reset)

	// ── Option B: Speech bubble ──
	fmt.Println()
	fmt.Println(dim + "Option B — Speech bubble" + reset)
	fmt.Println()
	fmt.Printf("   %s▄▀▀▀▀▀▄%s\n", gray, reset)
	fmt.Printf("   %s▌%s %s❯_%s  %s▐%s   %s\n", gray, reset, teal, reset, gray, reset, info1)
	fmt.Printf("   %s▀▄▄%s%s▄%s%s▄▄▀%s   %s\n", gray, reset, teal, reset, gray, reset, info2)
	fmt.Printf("     %s▀%s\n", teal, reset)

	// ── Option C: Minimal spark ──
	fmt.Println()
	fmt.Println(dim + "Option C — Minimal spark" + reset)
	fmt.Println()
	fmt.Printf("   %s✦%s %s✧%s        %s\n", teal, reset, gray, reset, info1)
	fmt.Printf("   %s✧%s %s✦%s        %s\n", gray, reset, teal, reset, info2)

	// ── Option D: Full bubble with tail ──
	fmt.Println()
	fmt.Println(dim + "Option D — Full bubble with tail" + reset)
	fmt.Println()
	fmt.Printf("      %s***********%s\n", gray, reset)
	fmt.Printf("    %s**%s   %s++ ++%s   %s**%s   %s\n", gray, reset, teal, reset, gray, reset, info1)
	fmt.Printf("    %s**%s    %s+++%s    %s**%s   %s\n", gray, reset, teal, reset, gray, reset, info2)
	fmt.Printf("      %s********  *%s\n", gray, reset)
	fmt.Printf("           %s++%s\n", teal, reset)
	fmt.Printf("         %s++%s\n", teal, reset)

	fmt.Println()
	fmt.Println(dim + "Which one? (A/B/C/D)" + reset)
	fmt.Println()
}
