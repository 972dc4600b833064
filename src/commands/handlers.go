package commands

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"infinitecopy/src/formats"
	"infinitecopy/src/store"
)

var builtins = map[string]Handler{
	"show":    cmdShow,
	"hide":    cmdHide,
	"toggle":  cmdToggle,
	"active":  cmdActive,
	"quit":    cmdQuit,
	"count":   cmdCount,
	"add":     cmdAdd,
	"get":     cmdGet,
	"paste":   cmdPaste,
	"remove":  cmdRemove,
	"filter":  cmdFilter,
	"formats": cmdFormats,
	"data":    cmdData,
}

func cmdShow(_ context.Context, env *Env, _ *Call) error {
	env.Window.Show()
	return nil
}

func cmdHide(_ context.Context, env *Env, _ *Call) error {
	env.Window.Hide()
	return nil
}

func cmdToggle(_ context.Context, env *Env, _ *Call) error {
	env.Window.Toggle()
	return nil
}

func cmdActive(_ context.Context, env *Env, _ *Call) error {
	if !env.Window.IsActive() {
		return ExitCode(1)
	}
	return nil
}

func cmdQuit(_ context.Context, env *Env, call *Call) error {
	call.log.Info("Quit requested")
	if env.Quit != nil {
		env.Quit()
	}
	return nil
}

func cmdCount(ctx context.Context, env *Env, call *Call) error {
	n, err := env.Store.Count(ctx)
	if err != nil {
		return err
	}
	return call.PrintString(strconv.Itoa(n))
}

// cmdAdd stores every argument as a text item. Either all of them become visible or none.
func cmdAdd(ctx context.Context, env *Env, call *Call) error {
	b, err := env.Store.Begin(ctx)
	if err != nil {
		return err
	}
	for _, arg := range call.Args {
		if _, err := b.Add(ctx, formats.TextPayload(arg)); err != nil {
			_ = b.Rollback()
			return err
		}
	}
	return b.Commit()
}

// cmdGet prints items by row. A non-numeric argument sets the separator printed between
// the following items.
func cmdGet(ctx context.Context, env *Env, call *Call) error {
	sep := []byte("\n")
	first := true
	for _, arg := range call.Args {
		row, err := strconv.Atoi(string(arg))
		if err != nil {
			sep = []byte(unescape(string(arg)))
			continue
		}
		item, err := env.Store.ItemAt(ctx, row)
		if store.IsNotFound(err) {
			continue
		}
		if err != nil {
			return err
		}
		if !first && len(sep) > 0 {
			if err := call.Print(sep); err != nil {
				return err
			}
		}
		first = false
		if err := call.PrintString(item.Text); err != nil {
			return err
		}
	}
	return nil
}

// cmdPaste pastes each argument in order on the worker and stops at the first failure.
func cmdPaste(_ context.Context, env *Env, call *Call) error {
	if env.Paster == nil {
		if len(call.Args) > 0 {
			return Errorf("Pasting text is unsupported")
		}
		call.log.Warn("Pasting text is unsupported")
		return nil
	}
	if len(call.Args) == 0 {
		return nil
	}

	texts := call.Args
	paster := env.Paster
	finish := call.Defer()
	queued := env.async(func() error {
		for i, text := range texts {
			if err := paster.Paste(text); err != nil {
				return Errorf("Failed to paste text %d: %v", i, err)
			}
		}
		return nil
	}, finish)
	if !queued {
		finish(Errorf("Busy, please retry"))
	}
	return nil
}

func cmdRemove(ctx context.Context, env *Env, call *Call) error {
	if len(call.Args) == 0 || len(call.Args) > 2 {
		return Errorf("Usage: remove ROW [COUNT]")
	}
	row, err := parseRow(call.Args[0])
	if err != nil {
		return err
	}
	count := 1
	if len(call.Args) == 2 {
		if count, err = parseRow(call.Args[1]); err != nil {
			return err
		}
	}
	_, err = env.Store.RemoveRows(ctx, row, count)
	return err
}

func cmdFilter(_ context.Context, env *Env, call *Call) error {
	var f store.Filter
	switch len(call.Args) {
	case 0:
	case 1, 2:
		f.Text = string(call.Args[0])
		if len(call.Args) == 2 {
			mode, ok := store.ParseCaseMode(string(call.Args[1]))
			if !ok {
				return Errorf("Unknown case mode: %s", call.Args[1])
			}
			f.Case = mode
		}
	default:
		return Errorf("Usage: filter [TEXT [smart|sensitive|insensitive]]")
	}
	env.Store.SetFilter(f)
	return nil
}

func cmdFormats(ctx context.Context, env *Env, call *Call) error {
	if len(call.Args) != 1 {
		return Errorf("Usage: formats ROW")
	}
	item, err := itemAtArg(ctx, env, call.Args[0])
	if err != nil {
		return err
	}
	p, err := env.Store.Payloads(ctx, item.ID)
	if err != nil {
		return err
	}
	return call.PrintString(strings.Join(p.Names(), "\n"))
}

func cmdData(ctx context.Context, env *Env, call *Call) error {
	if len(call.Args) != 2 {
		return Errorf("Usage: data ROW FORMAT")
	}
	item, err := itemAtArg(ctx, env, call.Args[0])
	if err != nil {
		return err
	}
	data, ok, err := env.Store.Format(ctx, item.ID, string(call.Args[1]))
	if err != nil {
		return err
	}
	if !ok {
		return ExitCode(1)
	}
	return call.Print(data)
}

func parseRow(arg []byte) (int, error) {
	n, err := strconv.Atoi(string(arg))
	if err != nil || n < 0 {
		return 0, Errorf("Invalid row: %q", arg)
	}
	return n, nil
}

func itemAtArg(ctx context.Context, env *Env, arg []byte) (*store.Item, error) {
	row, err := parseRow(arg)
	if err != nil {
		return nil, err
	}
	item, err := env.Store.ItemAt(ctx, row)
	if store.IsNotFound(err) {
		return nil, Errorf("No item at row %d", row)
	}
	return item, errors.Wrapf(err, "row %d", row)
}
