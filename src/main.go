package main

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"soft/src/backend/llvm"
	"soft/src/frontend"
	"soft/src/interp"
	"soft/src/ir"
	"soft/src/util"
)

// run reads source code and either interprets it directly or hands the compiled terms to the LLVM
// backend, exactly as opt selects. Behaviour is otherwise identical for --load, -X and the non-REPL
// half of --repl: read every top-level form, compile each in source order against one shared
// environment, then either walk it with interp.Eval or compile the whole batch with llvm.GenLLVM.
func run(opt util.Options, env *interp.Environment, w *util.Writer) error {
	src, err := util.ReadSource(opt)
	if err != nil {
		return fmt.Errorf("could not read source code: %s", err)
	}

	nodes, err := readAll(src)
	if err != nil {
		return fmt.Errorf("read error: %s", err)
	}

	if opt.TokenStream {
		for _, n := range nodes {
			w.WriteString(n.String())
			w.WriteString("\n")
		}
		return nil
	}

	expander := interp.NewExpander(env)
	terms, err := ir.CompileProgram(nodes, expander)
	if err != nil {
		return fmt.Errorf("compile error: %s", err)
	}

	if opt.Verbose {
		for _, t := range terms {
			w.WriteString(t.String())
			w.WriteString("\n")
		}
	}

	if opt.Interp {
		for _, t := range terms {
			v, err := interp.Eval(t, env)
			if err != nil {
				return fmt.Errorf("runtime error: %s", err)
			}
			w.WriteValue(v)
		}
		return nil
	}

	if err := llvm.GenLLVM(opt, terms, env); err != nil {
		return fmt.Errorf("error reported by LLVM: %s", err)
	}
	return nil
}

// readAll drains every top-level form a reader produces over src.
func readAll(src string) ([]frontend.Node, error) {
	r := frontend.NewReader(src)
	var nodes []frontend.Node
	for {
		n, ok, err := r.Read()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nodes, nil
		}
		nodes = append(nodes, n)
	}
}

// repl runs an interactive read-eval-print loop on stdin against one persistent environment, so
// definitions from one line are visible to the next.
func repl(opt util.Options, env *interp.Environment, w *util.Writer) {
	expander := interp.NewExpander(env)
	sc := bufio.NewScanner(os.Stdin)
	fmt.Print("soft> ")
	for sc.Scan() {
		line := sc.Text()
		r := frontend.NewReader(line)
		n, ok, err := r.Read()
		if err != nil {
			fmt.Println(err)
			fmt.Print("soft> ")
			continue
		}
		if !ok {
			fmt.Print("soft> ")
			continue
		}
		t, err := ir.Compile(ir.NewCtx(), n, expander)
		if err != nil {
			fmt.Println(err)
			fmt.Print("soft> ")
			continue
		}
		v, err := interp.Eval(t, env)
		if err != nil {
			fmt.Println(err)
			fmt.Print("soft> ")
			continue
		}
		w.WriteValue(v)
		w.Flush()
		fmt.Print("soft> ")
	}
}

func main() {
	opt, err := util.ParseArgs()
	if err != nil {
		fmt.Printf("Command line argument error: %s\n", err)
		os.Exit(1)
	}

	wg := sync.WaitGroup{}
	util.ListenWrite(opt, nil, &wg)
	defer util.Close()

	env := interp.NewEnvironment()
	interp.RegisterIntrinsics(env)

	w := util.NewWriter()

	if opt.Repl {
		repl(opt, env, &w)
		w.Close()
		wg.Wait()
		return
	}

	if err := run(opt, env, &w); err != nil {
		fmt.Printf("Error: %s\n", err)
		w.Close()
		wg.Wait()
		util.Close()
		os.Exit(1)
	}
	w.Close()
	wg.Wait()
}
