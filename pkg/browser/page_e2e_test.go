//go:build e2e

package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pxfollow/pkg/automation"
	"pxfollow/pkg/config"
	"pxfollow/pkg/logger"
	"pxfollow/pkg/ratelimit"
)

// followingPage renders n follows. Opening the menu reveals the toggle and
// clicking it removes the leading follow, like Pixiv's own list.
func followingPage(n int) string {
	var items strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&items, `<li><div><a data-gtm-value="%d">artist-%d</a></div></li>`, i, i)
	}
	return `<!doctype html><html><body>
<div><h2 font-size="20" color="text2">Following</h2><div><span>` + fmt.Sprint(n) + `</span></div></div>
<section><ul id="list">` + items.String() + `</ul>
<button data-click-label="follow">Following</button><div><button id="menu">...</button></div>
</section>
<script>
document.getElementById('menu').addEventListener('click', () => {
	if (document.querySelector('div.gtm-profile-user-menu-restrict-changing')) return;
	const t = document.createElement('div');
	t.className = 'gtm-profile-user-menu-restrict-changing';
	t.setAttribute('role', 'button');
	t.setAttribute('aria-disabled', 'false');
	t.addEventListener('click', () => {
		t.remove();
		setTimeout(() => {
			const first = document.querySelector('#list li');
			if (first) first.remove();
		}, 50);
	});
	document.body.appendChild(t);
});
</script></body></html>`
}

func TestMachineAgainstRenderedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, followingPage(3))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	session, err := Connect(ctx, config.BrowserConfig{Headless: true}, logger.NewNopLogger())
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Navigate(ctx, srv.URL))

	page := session.Page()
	total, ok := page.FollowCount(ctx)
	require.True(t, ok)
	assert.Equal(t, 3, total)

	name, ok := page.LeadingEntityName(ctx)
	require.True(t, ok)
	assert.Equal(t, "artist-1", name)
	assert.Equal(t, automation.Disabled, page.ToggleState(ctx))

	m := automation.NewMachine(page, ratelimit.RealClock{}, automation.Options{
		PollInterval: 50 * time.Millisecond,
		MaxPolls:     40,
		Total:        automation.UnknownTotal,
	}, logger.NewNopLogger())

	result, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Edited)
	assert.Equal(t, automation.Done, m.State())
}
