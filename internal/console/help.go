package console

import (
	"fmt"
	"sort"
	"strings"
)

var helpTopics = map[string]string{
	"create":  "create <Class> [key=value ...]\n    Creates an instance, saves it and prints its id.\n    Quoted values use _ for spaces and \\\" for quotes.",
	"show":    "show <Class> <id>  |  <Class>.show(<id>)\n    Prints the string representation of an instance.",
	"destroy": "destroy <Class> <id>  |  <Class>.destroy(<id>)\n    Deletes an instance and saves the change.",
	"all":     "all [<Class>]  |  <Class>.all()\n    Prints every instance, optionally limited to one class.",
	"update":  "update <Class> <id> <attribute> <value>\n<Class>.update(<id>, <attribute>, <value>)\n<Class>.update(<id>, {'<attribute>': <value>, ...})\n    Sets attributes on an instance and saves it.",
	"count":   "count <Class>  |  <Class>.count()\n    Prints the number of instances of a class.",
	"quit":    "quit  |  EOF\n    Exits the console.",
	"help":    "help [<command>]\n    Lists commands or describes one.",
}

func (c *Console) help(args []string) {
	if len(args) > 0 {
		if text, ok := helpTopics[args[0]]; ok {
			fmt.Fprintln(c.out, text)
			return
		}
		fmt.Fprintf(c.out, "*** No help on %s\n", args[0])
		return
	}
	names := make([]string, 0, len(helpTopics))
	for name := range helpTopics {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Documented commands (type help <topic>):")
	fmt.Fprintln(c.out, "========================================")
	fmt.Fprintln(c.out, strings.Join(names, "  "))
	fmt.Fprintln(c.out)
}
