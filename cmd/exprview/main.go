package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"exprc/pkg/asm"
	"exprc/pkg/compiler"
	"exprc/pkg/cpu"
	"exprc/pkg/grid"
)

const (
	screenWidth  = 640
	screenHeight = 400
	lineHeight   = 16
	listingX     = 8
	panelX       = 360
	maxListing   = 20
)

var (
	bgColor      = color.RGBA{0x1e, 0x1e, 0x28, 0xff}
	textColor    = color.RGBA{0xdc, 0xdc, 0xdc, 0xff}
	currentColor = color.RGBA{0xff, 0xd7, 0x5f, 0xff}
	cellColor    = color.RGBA{0x3a, 0x4a, 0x6a, 0xff}
	faultColor   = color.RGBA{0xff, 0x6e, 0x6e, 0xff}
)

// stackLayout arranges the operand stack as a single column of cells.
var stackLayout = grid.Layout{OriginX: panelX, OriginY: 150, CellW: 240, CellH: lineHeight, Gap: 2, Cols: 1}

type Game struct {
	src  string
	prog *asm.Program
	vm   *cpu.CPU

	lines   []string // assembly listing, one entry per source line
	history [][]byte // hibernated machine states, most recent last
	face    text.Face

	snapshotPath string
	notice       string // result of the last save or load
}

func newGame(src string) (*Game, error) {
	assembly, prog, err := compiler.Build(src)
	if err != nil {
		return nil, err
	}
	g := &Game{
		src:   src,
		prog:  prog,
		vm:    cpu.NewCPU(),
		lines: strings.Split(strings.TrimRight(assembly, "\n"), "\n"),
	}
	if err := g.reset(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Game) reset() error {
	g.notice = ""
	g.history = g.history[:0]
	return g.vm.Load(g.prog.Code, g.prog.Entry)
}

// checkpoint records the current machine so stepBack can return to it.
func (g *Game) checkpoint() error {
	data, err := g.vm.HibernateToBytes()
	if err != nil {
		return err
	}
	g.history = append(g.history, data)
	return nil
}

// step executes one instruction. Faults stay recorded on the CPU and are
// shown in the status line.
func (g *Game) step() error {
	g.notice = ""
	if g.vm.Halted {
		return nil
	}
	if err := g.checkpoint(); err != nil {
		return err
	}
	_ = g.vm.Step()
	return nil
}

func (g *Game) runToEnd() error {
	g.notice = ""
	if g.vm.Halted {
		return nil
	}
	if err := g.checkpoint(); err != nil {
		return err
	}
	_ = g.vm.Run()
	return nil
}

// stepBack undoes the last step or run. It reports false when there is
// nothing to undo.
func (g *Game) stepBack() (bool, error) {
	g.notice = ""
	if len(g.history) == 0 {
		return false, nil
	}
	last := g.history[len(g.history)-1]
	g.history = g.history[:len(g.history)-1]
	return true, g.vm.RestoreFromBytes(last)
}

// save hibernates the machine to g.snapshotPath.
func (g *Game) save() error {
	if err := g.vm.HibernateToFile(g.snapshotPath); err != nil {
		return err
	}
	g.notice = "saved " + g.snapshotPath
	return nil
}

// load restores a machine saved by save. The snapshot must hold the program
// being viewed; on any failure the current machine is left untouched.
func (g *Game) load() error {
	restored := cpu.NewCPU()
	if err := restored.RestoreFromFile(g.snapshotPath); err != nil {
		return err
	}
	if !bytes.Equal(restored.Code(), g.prog.Code) {
		return fmt.Errorf("%s holds a different program", g.snapshotPath)
	}
	if err := g.checkpoint(); err != nil {
		return err
	}
	*g.vm = *restored
	g.notice = "loaded " + g.snapshotPath
	return nil
}

// currentLine is the 1-based listing line of the next instruction, or 0 once
// the machine has stopped.
func (g *Game) currentLine() int {
	if g.vm.Halted {
		return 0
	}
	return g.prog.LineAt(g.vm.PC)
}

// listing returns the numbered assembly with the next instruction marked.
func (g *Game) listing() []string {
	cur := g.currentLine()
	out := make([]string, len(g.lines))
	for i, l := range g.lines {
		marker := "  "
		if i+1 == cur {
			marker = "=>"
		}
		out[i] = fmt.Sprintf("%s%3d  %s", marker, i+1, l)
	}
	return out
}

// visibleListing keeps the current line on screen for long programs.
func (g *Game) visibleListing() []string {
	all := g.listing()
	if len(all) <= maxListing {
		return all
	}
	start := g.currentLine() - maxListing/2
	if start < 0 || g.currentLine() == 0 {
		start = 0
	}
	if g.vm.Halted {
		start = len(all) - maxListing
	}
	if start > len(all)-maxListing {
		start = len(all) - maxListing
	}
	return all[start : start+maxListing]
}

func (g *Game) registers() []string {
	return []string{
		fmt.Sprintf("rax %d", g.vm.Regs[cpu.RAX]),
		fmt.Sprintf("rdx %d", g.vm.Regs[cpu.RDX]),
		fmt.Sprintf("rdi %d", g.vm.Regs[cpu.RDI]),
		fmt.Sprintf("pc  0x%04x  sp 0x%05x", g.vm.PC, g.vm.SP),
	}
}

// stackCells returns the operand stack top first.
func (g *Game) stackCells() []string {
	vals := g.vm.Stack()
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = fmt.Sprintf("%d", v)
	}
	return out
}

func (g *Game) status() string {
	switch {
	case g.notice != "":
		return g.notice
	case g.vm.Err != nil:
		return fmt.Sprintf("fault: %v", g.vm.Err)
	case g.vm.Halted:
		return fmt.Sprintf("done in %d steps: %d (exit status %d)", g.vm.Steps, g.vm.Result(), g.vm.ExitStatus())
	}
	return fmt.Sprintf("step %d", g.vm.Steps)
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) || inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) {
		if err := g.step(); err != nil {
			return err
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) || inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		if _, err := g.stepBack(); err != nil {
			return err
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		if err := g.runToEnd(); err != nil {
			return err
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := g.reset(); err != nil {
			return err
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		if err := g.save(); err != nil {
			g.notice = fmt.Sprintf("save failed: %v", err)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyL) {
		if err := g.load(); err != nil {
			g.notice = fmt.Sprintf("load failed: %v", err)
		}
	}
	return nil
}

func (g *Game) drawText(screen *ebiten.Image, s string, x, y int, clr color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(x), float64(y))
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(screen, s, g.face, op)
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.face == nil {
		g.face = text.NewGoXFace(basicfont.Face7x13)
	}
	screen.Fill(bgColor)

	g.drawText(screen, g.src, listingX, 4, currentColor)
	for i, l := range g.visibleListing() {
		clr := textColor
		if strings.HasPrefix(l, "=>") {
			clr = currentColor
		}
		g.drawText(screen, l, listingX, 28+i*lineHeight, clr)
	}

	for i, r := range g.registers() {
		g.drawText(screen, r, panelX, 28+i*lineHeight, textColor)
	}

	g.drawText(screen, "stack (top first)", panelX, stackLayout.OriginY-lineHeight-4, textColor)
	cells := g.stackCells()
	rows := (screenHeight - 40 - stackLayout.OriginY) / (stackLayout.CellH + stackLayout.Gap)
	if limit := stackLayout.Capacity(rows); len(cells) > limit {
		cells = cells[:limit]
	}
	for i, c := range cells {
		px, py := stackLayout.CellOrigin(i)
		vector.DrawFilledRect(screen, float32(px), float32(py), float32(stackLayout.CellW), float32(stackLayout.CellH), cellColor, false)
		g.drawText(screen, c, px+4, py+1, textColor)
	}

	statusColor := textColor
	if g.vm.Err != nil {
		statusColor = faultColor
	}
	g.drawText(screen, g.status(), listingX, screenHeight-36, statusColor)
	ebitenutil.DebugPrintAt(screen, "space/right: step  left: back  enter: run  r: reset  s/l: save/load  esc: quit", listingX, screenHeight-18)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	fs := flag.NewFlagSet("exprview", flag.ExitOnError)
	snapshot := fs.String("snapshot", "exprview.zip", "file the S and L keys save to and load from")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: exprview [-snapshot FILE] EXPR")
		fs.PrintDefaults()
	}

	args := os.Args[1:]
	if len(args) == 0 {
		fs.Usage()
		os.Exit(1)
	}
	// EXPR is always last so a leading minus is not read as a flag.
	src := args[len(args)-1]
	_ = fs.Parse(args[:len(args)-1])
	if fs.NArg() != 0 {
		fs.Usage()
		os.Exit(1)
	}

	game, err := newGame(src)
	if err != nil {
		compiler.Report(os.Stderr, err)
		os.Exit(1)
	}
	game.snapshotPath = *snapshot

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(screenWidth*2, screenHeight*2)
	ebiten.SetWindowTitle("exprc viewer: " + src)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
