// Package cmdline implements the command parser and reporter: a
// line-oriented, ASCII, whitespace-tokenized command surface over the
// USB-CDC link. Unknown commands, malformed numbers, or wrong argument
// counts yield a diagnostic line and never mutate state.
package cmdline

import (
	"strings"

	"github.com/google/shlex"

	"pinio/errcode"
	"pinio/internal/bcm"
	"pinio/internal/config"
	"pinio/internal/hal"
	"pinio/internal/hwindex"
	"pinio/internal/rules"
	"pinio/internal/switches"
	"pinio/internal/util"
	"pinio/x/conv"
	"pinio/x/strconvx"
)

// Diagnostic tags returned to the host on malformed input.
const (
	tagBadCmd    = "[CMDLINE_BAD_CMD]"
	tagInvalid   = "[CMDLINE_INVALID_ARG]"
	tagTooFew    = "[CMDLINE_TOO_FEW_ARGS]"
	tagTooMany   = "[CMDLINE_TOO_MANY_ARGS]"
	helpBanner   = "Pinball/Arcade I/O Controller — command list:"
	commandLines = `? - this list
*IDN? - identity and version
SW? - debounced switch state, 10 hex words
OUT <hw> <tp> <hi> <lo> - pulse hw with PWM hi for tp ms, then hold lo
OUT <hw> <pwm> - steady PWM
RUL <id> <in> <out> <tHold> <tP> <pH> <pL> <posEdge> <autoOff> <lvlTrig> - install rule
RULE <id> - enable rule
RULD <id> - disable rule
LED <ch> <b0> <b1> ... - push raw bytes to LED string`
)

// Parser decodes host command lines into rule/output/query operations and
// streams replies through a TXBuffer.
type Parser struct {
	rules *rules.Engine
	bcm   *bcm.Engine
	hal   hal.Facade
	state *switches.State
	tx    *TXBuffer

	asyncReports bool
}

// New returns a Parser wired to the engines it dispatches into. Async
// change-event reporting defaults on, matching "the reporter pushes ...
// change events" with no host command in §6 to gate it.
func New(r *rules.Engine, b *bcm.Engine, h hal.Facade, state *switches.State, tx *TXBuffer) *Parser {
	return &Parser{rules: r, bcm: b, hal: h, state: state, tx: tx, asyncReports: true}
}

// ReportEdges implements scanner.EdgeReporter: it streams one line per
// debounced transition, in the ascending HwIndex order the scanner already
// delivers them in.
func (p *Parser) ReportEdges(events []switches.EdgeEvent) {
	if !p.asyncReports {
		return
	}
	for _, ev := range events {
		level := "0"
		if ev.NewLevel {
			level = "1"
		}
		p.tx.WriteLine("EV:" + strconvx.Itoa(int(ev.Index)) + "," + level + "," + strconvx.Itoa(int(ev.TSMillis)))
	}
}

// SetAsyncReports enables or disables the EV: change-event stream.
func (p *Parser) SetAsyncReports(on bool) { p.asyncReports = on }

// HandleLine decodes and dispatches a single command line. Lines are
// whitespace-tokenized with shlex so a LED payload's numeric tokens or a
// quoted echo both split exactly the way a shell would.
func (p *Parser) HandleLine(line string) {
	line = strings.TrimRight(line, "\r\n\x00")
	if strings.TrimSpace(line) == "" {
		return
	}

	tokens, err := shlex.Split(line)
	if err != nil || len(tokens) == 0 {
		p.tx.WriteLine(tagBadCmd + " " + line)
		return
	}

	cmd, args := tokens[0], tokens[1:]
	switch cmd {
	case "?":
		p.cmdHelp()
	case "*IDN?":
		p.tx.WriteLine(config.Identity)
	case "SW?":
		p.cmdSWQuery()
	case "OUT":
		if reply := p.cmdOut(args); reply != "" {
			p.tx.WriteLine(reply)
		}
	case "RUL":
		if reply := p.cmdRul(args); reply != "" {
			p.tx.WriteLine(reply)
		}
	case "RULE":
		if reply := p.cmdRulEnable(args, true); reply != "" {
			p.tx.WriteLine(reply)
		}
	case "RULD":
		if reply := p.cmdRulEnable(args, false); reply != "" {
			p.tx.WriteLine(reply)
		}
	case "LED":
		if reply := p.cmdLed(args); reply != "" {
			p.tx.WriteLine(reply)
		}
	default:
		p.tx.WriteLine(tagBadCmd + " " + line)
	}
}

func (p *Parser) cmdHelp() {
	p.tx.WriteLine(helpBanner)
	for _, line := range strings.Split(commandLines, "\n") {
		p.tx.WriteLine(line)
	}
}

// cmdSWQuery emits SW:0xWWWWWWWW,...(x10), the 40-byte debounced vector as
// ten little-endian 32-bit words in hex.
func (p *Parser) cmdSWQuery() {
	snap := p.state.GetAll()
	var sb strings.Builder
	sb.WriteString("SW:")
	var hexBuf [8]byte
	for w := 0; w < len(snap)/4; w++ {
		base := w * 4
		word := uint32(snap[base]) |
			uint32(snap[base+1])<<8 |
			uint32(snap[base+2])<<16 |
			uint32(snap[base+3])<<24
		if w > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("0x")
		sb.Write(conv.U32Hex(hexBuf[:], word))
	}
	p.tx.WriteLine(sb.String())
}

func parseInt(s string) (int64, error) {
	return strconvx.ParseInt(s, 0, 64)
}

// cmdOut implements both OUT forms: steady PWM and timed pulse-then-hold.
// Returns "" on success (the host sees no reply for a successful
// mutation), or a diagnostic line.
func (p *Parser) cmdOut(args []string) string {
	if len(args) < 2 {
		return tagTooFew
	}
	if len(args) > 4 {
		return tagTooMany
	}
	hwVal, err := parseInt(args[0])
	if err != nil {
		return tagInvalid
	}
	hw := hwindex.Index(hwVal)
	dec := hwindex.Decode(hw)

	var tPulse int64
	var hi, lo int64
	switch len(args) {
	case 2:
		pwm, err := parseInt(args[1])
		if err != nil {
			return tagInvalid
		}
		tPulse, hi, lo = 0, pwm, pwm
	case 4:
		tp, err1 := parseInt(args[1])
		h, err2 := parseInt(args[2])
		l, err3 := parseInt(args[3])
		if err1 != nil || err2 != nil || err3 != nil {
			return tagInvalid
		}
		tPulse, hi, lo = tp, h, l
	default:
		return tagTooMany
	}

	hi = int64(util.ClampInt(int(hi), 0, config.MaxPWM))
	lo = int64(util.ClampInt(int(lo), 0, config.MaxPWM))

	switch dec.Kind {
	case hwindex.Matrix:
		return "Cmd_OUT(): hwIndex=" + strconvx.Itoa(int(hw)) + " is a SM input"
	case hwindex.I2C:
		if err := p.bcm.SetPclOutput(dec, int16(tPulse), uint8(hi), uint8(lo)); err != nil {
			return "Cmd_OUT(): " + string(errcode.Of(err))
		}
		return ""
	case hwindex.HWPWM:
		p.hal.SetHwPWM(dec.Channel, uint16(hi))
		return ""
	default:
		return "Cmd_OUT(): hwIndex=" + strconvx.Itoa(int(hw)) + " is invalid"
	}
}

// cmdRul implements RUL <id> <in> <out> <tHold> <tP> <pH> <pL> <posEdge>
// <autoOff> <lvlTrig> — installing a rule always starts disabled.
func (p *Parser) cmdRul(args []string) string {
	const want = 10
	if len(args) < want {
		return tagTooFew
	}
	if len(args) > want {
		return tagTooMany
	}
	vals := make([]int64, want)
	for i, a := range args {
		v, err := parseInt(a)
		if err != nil {
			return tagInvalid
		}
		vals[i] = v
	}
	id := int(vals[0])
	input := hwindex.Index(vals[1])
	output := hwindex.Index(vals[2])
	err := p.rules.Configure(id, input, output,
		uint16(vals[3]), int16(vals[4]), uint8(vals[5]), uint8(vals[6]),
		vals[7] != 0, vals[8] != 0, vals[9] != 0)
	if err != nil {
		return "Cmd_RUL(): " + string(errcode.Of(err))
	}
	return ""
}

func (p *Parser) cmdRulEnable(args []string, on bool) string {
	if len(args) < 1 {
		return tagTooFew
	}
	if len(args) > 1 {
		return tagTooMany
	}
	v, err := parseInt(args[0])
	if err != nil {
		return tagInvalid
	}
	id := int(v)

	var opErr error
	name := "Cmd_RULE()"
	if on {
		opErr = p.rules.Enable(id)
	} else {
		opErr = p.rules.Disable(id)
		name = "Cmd_RULD()"
	}
	if opErr != nil {
		return name + ": " + string(errcode.Of(opErr))
	}
	return ""
}

// cmdLed implements LED <ch> <b0> <b1> ... — validated and passed through
// verbatim to the hardware facade's opaque byte-shift path; this module
// does not interpret the LED wire format any further.
func (p *Parser) cmdLed(args []string) string {
	if len(args) < 1 {
		return tagTooFew
	}
	ch, err := parseInt(args[0])
	if err != nil {
		return tagInvalid
	}
	data := make([]byte, 0, len(args)-1)
	for _, a := range args[1:] {
		v, err := parseInt(a)
		if err != nil || v < 0 || v > 0xFF {
			return tagInvalid
		}
		data = append(data, byte(v))
	}
	p.hal.WriteLEDString(int(ch), data)
	return ""
}
