// Package api はprojecthubのHTTP APIサーバーを提供する。
//
// ユーザー登録・ログイン・トークン更新は認証不要、それ以外のユーザーAPIと
// プロジェクトAPIはAuth Gateによる認証を必須とし、ユーザー管理APIは
// さらに管理者権限を要求する。プロジェクト集計APIのみ認証は任意で、
// ログイン中であれば本人の集計も返す。
package api
