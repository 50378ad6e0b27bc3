package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"nessdb/internal/resp"
	"nessdb/pkg/client"

	"github.com/spf13/cobra"
)

var (
	cliAddr string
)

var cliCmd = &cobra.Command{
	Use:   "cli",
	Short: "Start a CLI client to connect to nessdb server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startCLI(cliAddr)
	},
}

func init() {
	cliCmd.Flags().StringVar(&cliAddr, "addr", "127.0.0.1:6379", "server address to connect to")
	rootCmd.AddCommand(cliCmd)
}

// startCLI 启动命令行客户端
func startCLI(addr string) error {
	c, err := client.Dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Printf("Connected to nessdb at %s\n", addr)

	stdin := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")
		line, err := stdin.ReadString('\n')
		if err != nil {
			fmt.Println("read input error:", err)
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			fmt.Println("bye")
			return nil
		}

		args := splitArgs(line)
		if len(args) == 0 {
			continue
		}

		payload, err := c.Do(args...)
		if err != nil {
			fmt.Println(err)
			return err
		}

		printRESP(payload, "")
	}
}

// splitArgs 按空白切分，命令名转成大写
func splitArgs(line string) []string {
	fields := strings.Fields(line)
	if len(fields) > 0 {
		fields[0] = strings.ToUpper(fields[0])
	}
	return fields
}

func printRESP(v interface{}, indent string) {
	switch val := v.(type) {
	case nil:
		fmt.Println(indent + "(nil)")

	case []byte:
		fmt.Printf("%s%q\n", indent, val)

	case string:
		fmt.Println(indent + val)

	case int64:
		fmt.Printf("%s(integer) %d\n", indent, val)

	case []interface{}:
		if len(val) == 0 {
			fmt.Println(indent + "(empty array)")
		}
		for i, e := range val {
			fmt.Printf("%s%d) ", indent, i+1)
			printRESP(e, "")
		}

	case resp.RespError:
		fmt.Println(indent+"(error)", val.Message)

	default:
		fmt.Printf("%s%v\n", indent, val)
	}
}
