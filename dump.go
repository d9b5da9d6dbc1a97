package stripclust

import (
	"bufio"
	"fmt"
	"io"
)

// WriteClusters writes the accepted clusters of res, grouped by chunk. Each
// chunk starts with its seed count; each accepted cluster prints its seed
// detector, first strip id and packed charges.
func WriteClusters(w io.Writer, store *StripStore, res *Result) error {
	bw := bufio.NewWriter(w)
	for _, c := range res.Chunks {
		fmt.Fprintf(bw, " Event %d nSeedStripsNC %d\n", c.Index, c.NSeeds)
		for j := c.Begin; j < c.Begin+c.NSeeds; j++ {
			cl := res.Set.cluster(c.Index, j)
			if !cl.Accepted {
				continue
			}
			fmt.Fprintf(bw, " det id %d strip %d: ", store.DetID[cl.SeedIndex], store.StripID[cl.Left])
			for _, q := range cl.ADCs {
				fmt.Fprintf(bw, "%d ", q)
			}
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}
