// Package httpclient はprojecthub APIのGoクライアントを提供する。
//
// ログインで得たアクセストークンをBearerトークンとして付与し、
// アクセストークンの期限切れ(token_expired)を受け取った場合はリフレッシュトークンで
// 一度だけ更新して再送する。それ以外の失敗は*APIErrorとして呼び出し側に返す。
package httpclient
