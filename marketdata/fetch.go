package marketdata

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang/glog"
)

const (
	kDefaultMaxAttempts = 3
	kDefaultTimeout     = 30 * time.Second
)

// Fetcher downloads market data documents. It retries non-OK responses a
// bounded number of times and transparently decodes gzip bodies.
type Fetcher struct {
	session     *http.Client
	headers     map[string]string
	maxAttempts int
	backoff     time.Duration

	// cookieUrl, when set, is visited for session cookies before the first
	// request and again after a 401.
	cookieUrl   string
	fetchCookie bool
	cookies     map[string]string
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		session:     &http.Client{Timeout: kDefaultTimeout},
		maxAttempts: kDefaultMaxAttempts,
		backoff:     time.Second,
		cookies:     make(map[string]string),
		headers: map[string]string{
			"user-agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/80.0.3987.149 Safari/537.36",
			"accept-language": "en,gu;q=0.9,hi;q=0.8",
			"accept-encoding": "gzip",
		},
	}
}

func (self *Fetcher) SetClient(client *http.Client) {
	self.session = client
}

func (self *Fetcher) SetMaxAttempts(attempts int, backoff time.Duration) {
	if attempts < 1 {
		attempts = 1
	}
	self.maxAttempts = attempts
	self.backoff = backoff
}

func (self *Fetcher) SetCookieUrl(url string) {
	self.cookieUrl = url
	self.fetchCookie = url != ""
}

func (self *Fetcher) FetchCookie() {
	req, err := self.NewGetRequest(self.cookieUrl)
	if err != nil {
		glog.Error("Invalid cookie URL ", self.cookieUrl, ". ", err)
		return
	}
	glog.Info("Fetching URL ", self.cookieUrl)
	resp, err := self.session.Do(req)
	if err != nil {
		glog.Error(fmt.Sprintf("Fetching %s failed with error %s",
			self.cookieUrl, err))
		return
	}
	defer resp.Body.Close()
	for _, c := range resp.Cookies() {
		self.cookies[c.Name] = c.Value
	}
	self.fetchCookie = false
}

func (self *Fetcher) NewGetRequest(url string) (*http.Request, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range self.headers {
		req.Header.Set(k, v)
	}
	for k, v := range self.cookies {
		req.AddCookie(&http.Cookie{Name: k, Value: v})
	}
	return req, nil
}

// FetchUrl returns the decoded body of a 200 response.
func (self *Fetcher) FetchUrl(url string) (*bytes.Buffer, error) {
	var lastErr error
	for attempt := 1; attempt <= self.maxAttempts; attempt++ {
		if attempt > 1 && self.backoff > 0 {
			time.Sleep(self.backoff)
		}
		if self.fetchCookie {
			self.FetchCookie()
		}

		req, err := self.NewGetRequest(url)
		if err != nil {
			return nil, err
		}
		glog.Info("Fetching URL ", url)
		resp, err := self.session.Do(req)
		if err != nil {
			msg := fmt.Sprintf("Fetching URL=%s failed with error=%s", url, err)
			glog.Error(msg)
			lastErr = errors.New(msg)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			msg := fmt.Sprintf("Fetching URL=%s failed with status=%d.",
				url, resp.StatusCode)
			glog.Error(msg, " Attempt ", attempt, " of ", self.maxAttempts)
			if resp.StatusCode == http.StatusUnauthorized && self.cookieUrl != "" {
				self.fetchCookie = true
			}
			lastErr = errors.New(msg)
			continue
		}

		buf, err := self.readResponse(resp)
		if err != nil {
			msg := fmt.Sprintf("Reading the HTTP response failed with error=%s", err)
			glog.Error(msg)
			return nil, errors.New(msg)
		}
		glog.Info(fmt.Sprintf("Successfully fetched URL=%s.", url))
		return buf, nil
	}
	return nil, lastErr
}

func (self *Fetcher) readResponse(resp *http.Response) (*bytes.Buffer, error) {
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		reader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer reader.Close()
		body = reader
	}

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(body); err != nil {
		return nil, err
	}
	return buf, nil
}

// FetchCSV downloads a CSV document and rejects an empty body.
func (self *Fetcher) FetchCSV(url string) (*bytes.Buffer, error) {
	buf, err := self.FetchUrl(url)
	if err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		msg := fmt.Sprintf("URL=%s returned an empty CSV.", url)
		glog.Error(msg)
		return nil, errors.New(msg)
	}
	return buf, nil
}

// FetchPriceHistory downloads and parses a price history CSV.
func (self *Fetcher) FetchPriceHistory(url string) ([]PriceBar, error) {
	buf, err := self.FetchCSV(url)
	if err != nil {
		return nil, err
	}
	return LoadPriceHistory(buf)
}

// FetchOptionChain downloads an exchange option chain JSON document.
func (self *Fetcher) FetchOptionChain(
	symbol string,
	url string,
	expiryDate string) (*OptionChain, error) {

	buf, err := self.FetchUrl(url)
	if err != nil {
		msg := fmt.Sprintf("Fetching OC for symbol=%s failed with err=%s",
			symbol, err)
		glog.Error(msg)
		return nil, err
	}
	return ParseOptionChainJSON(symbol, buf.Bytes(), expiryDate)
}
