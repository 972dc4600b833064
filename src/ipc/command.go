package ipc

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Command is one invocation: a name followed by positional arguments.
type Command struct {
	Name string
	Args [][]byte
}

// WriteCommand sends COMMAND_NAME, one COMMAND_ARG per argument in order, then COMMAND_END.
func (c *Conn) WriteCommand(name string, args [][]byte) error {
	if err := c.SendString(KindCommandName, name); err != nil {
		return err
	}
	for _, arg := range args {
		if err := c.Send(KindCommandArg, arg); err != nil {
			return err
		}
	}
	return c.Send(KindCommandEnd, nil)
}

// ReadCommand receives a complete command from a client. Arguments are collected until
// COMMAND_END; any other kind in between is a protocol error.
func (c *Conn) ReadCommand() (*Command, error) {
	_, name, err := c.Receive(KindCommandName)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(name) {
		_ = c.Close()
		return nil, protocolErrorf("command name is not valid UTF-8")
	}

	cmd := &Command{Name: string(name)}
	for {
		kind, payload, err := c.Receive(KindCommandArg, KindCommandEnd)
		if err != nil {
			return nil, err
		}
		if kind == KindCommandEnd {
			return cmd, nil
		}
		cmd.Args = append(cmd.Args, payload)
	}
}

// SendExit sends an EXIT frame with the decimal code.
func (c *Conn) SendExit(code int) error {
	return c.SendString(KindExit, strconv.Itoa(code))
}

// ParseExit decodes an EXIT payload.
func ParseExit(payload []byte) (int, error) {
	code, err := strconv.Atoi(strings.TrimSpace(string(payload)))
	if err != nil {
		return 0, protocolErrorf("malformed exit code %q", payload)
	}
	return code, nil
}
