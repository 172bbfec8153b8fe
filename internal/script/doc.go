// Package script implements the embedded Scheme dialect that heinzelmann
// programs are written in.
//
// The engine is deliberately small: a reader, a tail-calling evaluator over
// cons cells, and a set of native procedures. Host code extends it by
// registering natives (RegisterFn) and defining globals (Define).
//
// # Thread Safety
//
// An Engine is NOT safe for concurrent use. Exactly one goroutine may own an
// Engine; in heinzelmann that goroutine is the command actor.
//
// # Usage
//
//	eng := script.New()
//	eng.RegisterFn("greet", 1, 1, func(args []script.Value) (script.Value, error) {
//	    name, err := script.StringArg("greet", args, 0)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return "hello " + name, nil
//	})
//	v, err := eng.Eval(`(greet "world")`)
package script
