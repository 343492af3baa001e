// package bitable implements a client for the Feishu Bitable open API.
//
// The client covers the surface the sync engine needs: tenant token
// authentication, wiki reference resolution, cursor-paginated record search,
// and single/batch record writes. Cell values are schema-less per table, so
// the package also carries the normalization rules that flatten arbitrary
// cell payloads into display strings.
package bitable
