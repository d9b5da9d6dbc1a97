// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stripclust finds clusters of charge in silicon-strip detector
// readout.
//
// A pass runs five stages over a StripStore:
//   - setSeedStrips marks strips whose adc/noise exceeds the seed cut
//   - setNCSeedStrips keeps one seed per run of linked strips
//   - setStripIndex compacts the kept seeds into an index list
//   - findBoundary grows each seed left and right through adjacent strips
//   - checkCluster applies the cluster cut and packs per-strip charges
//
// The strips are split into chunks aligned to detector boundaries. The CPU
// backend runs chunks sequentially or in parallel; the stream backend runs
// each chunk on its own stream of the device runtime. Both produce the same
// clusters bit for bit.
package stripclust
