package command

func init() {
	RegisterCommand(&Command{
		Name:     "PING",
		Kind:     KindPing,
		Arity:    -1, // ping [anything]
		Executor: execPing,
	})

	RegisterCommand(&Command{
		Name:     "SET",
		Kind:     KindSet,
		Arity:    3, // set key value
		Executor: execSet,
	})

	RegisterCommand(&Command{
		Name:     "MSET",
		Kind:     KindMSet,
		Arity:    -3, // mset key value [key value ...]
		Executor: execMSet,
		Check: func(cmdLine [][]byte) bool {
			return len(cmdLine)%2 == 1
		},
	})

	RegisterCommand(&Command{
		Name:     "GET",
		Kind:     KindGet,
		Arity:    2, // get key
		Executor: execGet,
	})

	RegisterCommand(&Command{
		Name:     "MGET",
		Kind:     KindMGet,
		Arity:    -2, // mget key [key ...]
		Executor: execMGet,
	})

	RegisterCommand(&Command{
		Name:     "DEL",
		Kind:     KindDel,
		Arity:    -2, // del key [key ...]
		Executor: execDel,
	})

	RegisterCommand(&Command{
		Name:     "EXISTS",
		Kind:     KindExists,
		Arity:    2, // exists key
		Executor: execExists,
	})

	RegisterCommand(&Command{
		Name:     "INFO",
		Kind:     KindInfo,
		Arity:    -1, // info [section]
		Executor: execInfo,
	})
}
