package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// TokenStore OAuthトークンの保存先
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(token *oauth2.Token) error
}

// AuthorizeFunc ユーザーに認可を求め、トークンを取得する
type AuthorizeFunc func(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error)

// NewGoogleClientOption 認証情報の種類に応じてCalendar APIのクライアントオプションを作成
//
// サービスアカウント等の認証情報はそのまま使い、インストールアプリのクライアント情報の場合は
// 保存済みトークンを使う。トークンがなければ authorize で取得して保存する。
func NewGoogleClientOption(ctx context.Context, credentialsJSON []byte, store TokenStore, authorize AuthorizeFunc) (option.ClientOption, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(credentialsJSON, &probe); err != nil {
		return nil, fmt.Errorf("google認証情報のJSON解析に失敗しました: %w", err)
	}

	_, installed := probe["installed"]
	_, web := probe["web"]
	if !installed && !web {
		creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, calendar.CalendarReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("google認証情報の読み込みに失敗しました: %w", err)
		}
		return option.WithCredentials(creds), nil
	}

	conf, err := google.ConfigFromJSON(credentialsJSON, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("OAuthクライアント情報の読み込みに失敗しました: %w", err)
	}

	token, err := store.Load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("保存済みトークンの読み込みに失敗しました: %w", err)
		}
		if authorize == nil {
			return nil, fmt.Errorf("保存済みトークンがなく、認可を行えません")
		}
		token, err = authorize(ctx, conf)
		if err != nil {
			return nil, fmt.Errorf("OAuth認可に失敗しました: %w", err)
		}
		if err := store.Save(token); err != nil {
			return nil, fmt.Errorf("トークンの保存に失敗しました: %w", err)
		}
	}

	source := &persistingTokenSource{
		base:  conf.TokenSource(ctx, token),
		store: store,
		last:  token.AccessToken,
	}
	return option.WithTokenSource(oauth2.ReuseTokenSource(token, source)), nil
}

// persistingTokenSource 更新されたトークンを保存するTokenSource
type persistingTokenSource struct {
	base  oauth2.TokenSource
	store TokenStore

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken != s.last {
		if err := s.store.Save(token); err != nil {
			return nil, fmt.Errorf("更新したトークンの保存に失敗しました: %w", err)
		}
		s.last = token.AccessToken
	}
	return token, nil
}

// FileTokenStore JSONファイルにトークンを保存する
type FileTokenStore struct {
	Path string
}

// Load ファイルがない場合は os.ErrNotExist を返す
func (s FileTokenStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("トークンファイル %s の解析に失敗しました: %w", s.Path, err)
	}
	return &token, nil
}

// Save 所有者のみ読み書き可能な権限で保存
func (s FileTokenStore) Save(token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(s.Path, data, 0o600)
}

// callbackResult 認可リダイレクトの受信結果
type callbackResult struct {
	code string
	err  error
}

// NewLoopbackAuthorizer ローカルのHTTPサーバーでリダイレクトを受けてトークンを取得する
//
// 認可URLはログに出力するので、ブラウザで開いて許可する。
func NewLoopbackAuthorizer(logger *zap.Logger) AuthorizeFunc {
	return func(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, fmt.Errorf("コールバック用ポートの確保に失敗しました: %w", err)
		}

		loopback := *conf
		loopback.RedirectURL = fmt.Sprintf("http://%s/", listener.Addr().String())

		state := uuid.NewString()
		verifier := oauth2.GenerateVerifier()
		authURL := loopback.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

		logger.Info("ブラウザで次のURLを開いてカレンダーへのアクセスを許可してください", zap.String("url", authURL))

		results := make(chan callbackResult, 1)
		server := &http.Server{
			Handler:           callbackHandler(state, results),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("コールバックサーバーが停止しました", zap.Error(err))
			}
		}()
		defer server.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-results:
			if res.err != nil {
				return nil, res.err
			}
			token, err := loopback.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
			if err != nil {
				return nil, fmt.Errorf("認可コードの交換に失敗しました: %w", err)
			}
			return token, nil
		}
	}
}

// callbackHandler 認可サーバーからのリダイレクトを受け取り、最初の結果だけを通知する
func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		var res callbackResult
		switch {
		case query.Get("state") != state:
			http.Error(w, "state が一致しません", http.StatusBadRequest)
			return
		case query.Get("error") != "":
			res.err = fmt.Errorf("認可が拒否されました: %s", query.Get("error"))
			http.Error(w, "認可が拒否されました", http.StatusForbidden)
		case query.Get("code") == "":
			res.err = fmt.Errorf("認可コードがありません")
			http.Error(w, "認可コードがありません", http.StatusBadRequest)
		default:
			res.code = query.Get("code")
			fmt.Fprintln(w, "認可が完了しました。このウィンドウを閉じてください。")
		}

		select {
		case results <- res:
		default:
		}
	})
}
