package sh

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/ddrlink/pkg/bridge"
	"github.com/robotalks/ddrlink/pkg/ddr"
)

// Shell provides ishell backed interactive shell over a simulated target.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	Timeout     time.Duration

	Shell  *ishell.Shell
	Target *Target
}

const (
	shellKey = "$shell"
	prompt   = "ddr > "
)

var (
	// flags

	evalOnly     bool
	outputJSON   bool
	storageBytes uint64 = 64 << 20
	timeout             = 5 * time.Second

	// commands
	commands = []*ishell.Cmd{
		&StatusCmd,
		&CalibrateCmd,
		&ResetCmd,
		&PeekCmd,
		&PokeCmd,
		&UploadCmd,
		&DownloadCmd,
		&SelfTestCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.Uint64Var(&storageBytes, "storage", storageBytes, "Simulated DDR size in bytes.")
	flag.DurationVar(&timeout, "timeout", timeout, "Timeout of each command.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(target *Target) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     timeout,

		Shell:  ishell.New(),
		Target: target,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Do runs fn with the command timeout and prints the error if any.
func Do(c *ishell.Context, fn func(ctx context.Context, s *Shell) error) {
	s := ShellFrom(c)
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	if err := fn(ctx, s); err != nil {
		c.Err(err)
	}
}

// Print prints v in JSON or with the text formatter.
func (s *Shell) Print(c *ishell.Context, v interface{}, text func() string) error {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			return err
		}
		c.Println(string(out))
		return nil
	}
	c.Print(text())
	return nil
}

// ParseAddr parses a doubleword address in any base strconv accepts.
func ParseAddr(s string) (ddr.Addr, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return ddr.Addr(v), nil
}

// ParseData parses hex bytes, or reads a file when prefixed with @.
func ParseData(args []string) ([]byte, error) {
	if len(args) == 1 && strings.HasPrefix(args[0], "@") {
		return ioutil.ReadFile(args[0][1:])
	}
	data, err := hex.DecodeString(strings.Join(args, ""))
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	return data, nil
}

func atoi(args []string, index, def int) (int, error) {
	if len(args) <= index {
		return def, nil
	}
	return strconv.Atoi(args[index])
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// StatusCmd shows the channel and controller state.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: func(c *ishell.Context) {
			Do(c, func(ctx context.Context, s *Shell) error {
				st := s.Target.Status()
				return s.Print(c, st, func() string {
					var w strings.Builder
					fmt.Fprintf(&w, "state: %s\nin sync: %v\nwrite pointer: %d\nlast word: %s\nregister writes: %d\n",
						st.State, st.InSync, st.WritePointer, st.LastWord, st.Writes)
					for _, v := range st.Violations {
						fmt.Fprintf(&w, "violation: %s\n", v)
					}
					return w.String()
				})
			})
		},
	}

	// CalibrateCmd waits for calibration.
	CalibrateCmd = ishell.Cmd{
		Name: "calibrate",
		Help: "",
		Func: func(c *ishell.Context) {
			Do(c, func(ctx context.Context, s *Shell) error {
				if err := s.Target.Channel.Calibrate(ctx); err != nil {
					return err
				}
				c.Println("OK")
				return nil
			})
		},
	}

	// ResetCmd drains a transaction abandoned by an earlier error.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: func(c *ishell.Context) {
			Do(c, func(ctx context.Context, s *Shell) error {
				if err := s.Target.Channel.Reset(ctx); err != nil {
					return err
				}
				c.Println("OK")
				return nil
			})
		},
	}

	// PeekCmd reads doublewords.
	PeekCmd = ishell.Cmd{
		Name:    "peek",
		Aliases: []string{"rd"},
		Help:    "ADDR [COUNT]",
		Func: func(c *ishell.Context) {
			Do(c, func(ctx context.Context, s *Shell) error {
				if len(c.Args) < 1 {
					return fmt.Errorf("address required")
				}
				addr, err := ParseAddr(c.Args[0])
				if err != nil {
					return err
				}
				n, err := atoi(c.Args, 1, 1)
				if err != nil {
					return err
				}
				data, err := s.Target.Peek(ctx, addr, n)
				if err != nil {
					return err
				}
				return s.Print(c, data, func() string { return hex.Dump(data) })
			})
		},
	}

	// PokeCmd writes doublewords.
	PokeCmd = ishell.Cmd{
		Name:    "poke",
		Aliases: []string{"wr"},
		Help:    "ADDR HEX...",
		Func: func(c *ishell.Context) {
			Do(c, func(ctx context.Context, s *Shell) error {
				if len(c.Args) < 2 {
					return fmt.Errorf("address and data required")
				}
				addr, err := ParseAddr(c.Args[0])
				if err != nil {
					return err
				}
				data, err := ParseData(c.Args[1:])
				if err != nil {
					return err
				}
				if err := s.Target.Poke(ctx, addr, data); err != nil {
					return err
				}
				c.Println("OK")
				return nil
			})
		},
	}

	// UploadCmd feeds data through the bridge upload.
	UploadCmd = ishell.Cmd{
		Name:    "upload",
		Aliases: []string{"up"},
		Help:    "HEX...|@FILE",
		Func: func(c *ishell.Context) {
			Do(c, func(ctx context.Context, s *Shell) error {
				data, err := ParseData(c.Args)
				if err != nil {
					return err
				}
				res, err := s.Target.Upload(ctx, data)
				if err != nil {
					return err
				}
				return s.Print(c, res, func() string {
					return fmt.Sprintf("uploaded %d bytes, echo %x\n", len(data), res.Sent)
				})
			})
		},
	}

	// DownloadCmd reads memory through the bridge download.
	DownloadCmd = ishell.Cmd{
		Name:    "download",
		Aliases: []string{"down"},
		Help:    "ADDR BYTES",
		Func: func(c *ishell.Context) {
			Do(c, func(ctx context.Context, s *Shell) error {
				if len(c.Args) < 2 {
					return fmt.Errorf("address and size required")
				}
				addr, err := ParseAddr(c.Args[0])
				if err != nil {
					return err
				}
				total, err := strconv.Atoi(c.Args[1])
				if err != nil {
					return err
				}
				res, err := s.Target.Download(ctx, addr, total)
				if err != nil {
					return err
				}
				return s.Print(c, res, func() string { return hex.Dump(res.Sent) })
			})
		},
	}

	// SelfTestCmd runs upload then download and verifies the result.
	SelfTestCmd = ishell.Cmd{
		Name: "selftest",
		Help: "[BYTES]",
		Func: func(c *ishell.Context) {
			Do(c, func(ctx context.Context, s *Shell) error {
				total, err := atoi(c.Args, 0, 16*s.Target.Config.Window)
				if err != nil {
					return err
				}
				if err := s.Target.SelfTest(ctx, total); err != nil {
					return err
				}
				c.Println("OK")
				return nil
			})
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(NewTarget(storageBytes, bridge.Default())).Run(flag.Args()...)
}
