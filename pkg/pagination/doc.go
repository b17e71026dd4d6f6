// Package pagination drives a sequential crawl over a paginated listing
// endpoint.
//
// The upstream reports the number of pages in pagination.last_visible_page of
// every response. The driver reads it once from page 1 and then walks pages
// 2..N strictly in order, pacing each request with a fixed delay so the crawl
// stays below the upstream's steady-state rate limit. Throttling inside a
// single page request is handled by the client; any error that reaches the
// driver aborts the whole crawl and no partial result is returned.
//
// Example usage:
//
//	driver := pagination.NewDriver(catalogueClient, pagination.DefaultConfig(), logger)
//	driver.OnProgress(func(p pagination.Progress) { fmt.Println(p) })
//	records, err := driver.Collect(ctx, "https://api.jikan.moe/v4/anime")
//
// The driver:
//   - Fetches page 1 to determine the total page count
//   - Waits RequestDelay before each further page
//   - Extracts and appends records in page order, then provider order
//   - Reports progress and an ETA after every page
package pagination
