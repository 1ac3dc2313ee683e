package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmynk/receiptsplit/internal/models"
)

func init() {
	rootCmd.AddCommand(splitCmd)
	splitCmd.Flags().IntP("people", "n", 1, "Number of people sharing the receipt")
	splitCmd.Flags().StringArray("name", nil, "Display name for the next person, in order (repeatable)")
	splitCmd.Flags().StringArrayP("assign", "a", nil, "Assign an item to people, e.g. 2:1,3 (repeatable)")
	splitCmd.Flags().IntP("payer", "p", 0, "Person who paid; prints what everyone owes them")
}

var splitCmd = &cobra.Command{
	Use:   "split FILE",
	Short: "Split an extraction file between people",
	Long: `Split the items of an extraction file, either a JSON list of
{"name", "quantity", "price"} records or an object holding one under
"items". Use "-" to read from stdin.

Items and people are numbered from 1. Items without an --assign are shared
by everyone.`,
	Example: `  receiptsplit split receipt.json -n 3 --assign 1:1 --assign 2:2,3 --payer 1`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSplit,
}

type splitOptions struct {
	people  int
	names   []string
	assign  []string
	payerID int
}

func runSplit(cmd *cobra.Command, args []string) error {
	opts := splitOptions{}
	opts.people, _ = cmd.Flags().GetInt("people")
	opts.names, _ = cmd.Flags().GetStringArray("name")
	opts.assign, _ = cmd.Flags().GetStringArray("assign")
	opts.payerID, _ = cmd.Flags().GetInt("payer")

	var payload []byte
	var err error
	if args[0] == "-" {
		payload, err = io.ReadAll(cmd.InOrStdin())
	} else {
		payload, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read extraction: %w", err)
	}

	bill, err := buildBill(payload, opts)
	if err != nil {
		return err
	}
	return printSplit(cmd.OutOrStdout(), bill, opts.payerID)
}

// buildBill loads the payload, adds the people and applies the assignments.
func buildBill(payload []byte, opts splitOptions) (*models.Bill, error) {
	if opts.people < 1 {
		return nil, fmt.Errorf("--people must be at least 1, got %d", opts.people)
	}
	if len(opts.names) > opts.people {
		return nil, fmt.Errorf("%d names given for %d people", len(opts.names), opts.people)
	}

	bill, err := models.NewBillFromExtraction(payload)
	if err != nil {
		return nil, err
	}
	for i := 0; i < opts.people; i++ {
		name := ""
		if i < len(opts.names) {
			name = opts.names[i]
		}
		bill.AddParticipant(name)
	}

	for _, arg := range opts.assign {
		itemID, people, err := parseAssignment(arg)
		if err != nil {
			return nil, err
		}
		for _, personID := range people {
			if err := bill.ToggleAssignment(itemID, personID); err != nil {
				return nil, fmt.Errorf("--assign %s: %w", arg, err)
			}
		}
	}
	if opts.payerID != 0 {
		if _, err := bill.Participant(opts.payerID); err != nil {
			return nil, fmt.Errorf("--payer: %w", err)
		}
	}

	bill.ComputeSplit()
	return bill, nil
}

// parseAssignment reads "ITEM:PERSON[,PERSON...]".
func parseAssignment(arg string) (int, []int, error) {
	item, list, ok := strings.Cut(arg, ":")
	if !ok {
		return 0, nil, fmt.Errorf("--assign %q: want ITEM:PERSON[,PERSON...]", arg)
	}
	itemID, err := strconv.Atoi(strings.TrimSpace(item))
	if err != nil {
		return 0, nil, fmt.Errorf("--assign %q: bad item id: %w", arg, err)
	}

	var people []int
	seen := make(map[int]bool)
	for _, field := range strings.Split(list, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return 0, nil, fmt.Errorf("--assign %q: bad person id: %w", arg, err)
		}
		// Toggling twice would undo the assignment.
		if !seen[id] {
			seen[id] = true
			people = append(people, id)
		}
	}
	return itemID, people, nil
}

func printSplit(out io.Writer, bill *models.Bill, payerID int) error {
	names := make(map[int]string)
	for _, p := range bill.Participants() {
		names[p.ID] = p.DisplayName
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tITEM\tQTY\tPRICE\tTOTAL\tSHARED BY")
	for _, item := range bill.Items() {
		shared := "everyone"
		if assigned := item.AssignedTo(); len(assigned) > 0 {
			who := make([]string, len(assigned))
			for i, id := range assigned {
				who[i] = names[id]
			}
			shared = strings.Join(who, ", ")
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n",
			item.ID, item.Name, item.Quantity, item.UnitPrice, item.LineTotal(), shared)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nSubtotal: %s\n", bill.Subtotal())
	if total, ok := bill.DeclaredTotal(); ok {
		fmt.Fprintf(out, "Receipt total: %s\n", total)
	}
	if err := bill.CheckTotal(); err != nil {
		fmt.Fprintf(out, "Warning: %v\n", err)
	}

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PERSON\tOWES")
	for _, split := range bill.Splits() {
		fmt.Fprintf(tw, "%s\t%s\n", split.DisplayName, split.Total)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if payerID != 0 {
		debts := bill.Debts(payerID)
		fmt.Fprintln(out)
		if len(debts) == 0 {
			fmt.Fprintf(out, "Nobody owes %s anything.\n", names[payerID])
		}
		for _, d := range debts {
			fmt.Fprintf(out, "%s pays %s %s\n", names[d.From], names[d.To], d.Amount)
		}
	}
	return nil
}
