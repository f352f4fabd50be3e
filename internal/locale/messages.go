package locale

// Messages is the string table shared by the HTML pages and outbound email.
type Messages struct {
	AppTagline        string
	LoginTitle        string
	LoginButton       string
	LoginWithProvider string
	EmailLabel        string
	PasswordLabel     string
	WorkspacesTitle   string
	CreateWorkspace   string
	InviteTitle       string
	InviteBody        string
	InviteJoin        string
	InviteInvalid     string
	InviteEmailSubj   string
	InviteEmailIntro  string
	InviteEmailExpiry string
	DashboardTitle    string
	Role              map[string]string
}

var catalog = map[string]Messages{
	Japanese: {
		AppTagline:        "構造的緊張チャートでビジョンと現実をつなぐ",
		LoginTitle:        "ログイン",
		LoginButton:       "ログイン",
		LoginWithProvider: "外部アカウントでログイン",
		EmailLabel:        "メールアドレス",
		PasswordLabel:     "パスワード",
		WorkspacesTitle:   "ワークスペースを選択",
		CreateWorkspace:   "新しいワークスペースを作成",
		InviteTitle:       "ワークスペースへの招待",
		InviteBody:        "%s に %s として招待されています。",
		InviteJoin:        "参加する",
		InviteInvalid:     "この招待リンクは無効か、有効期限が切れています。",
		InviteEmailSubj:   "%s さんから「%s」への招待が届いています",
		InviteEmailIntro:  "%s さんがあなたをワークスペース「%s」に %s として招待しました。",
		InviteEmailExpiry: "このリンクの有効期限は7日間です。",
		DashboardTitle:    "ダッシュボード",
		Role: map[string]string{
			"owner":      "オーナー",
			"consultant": "コンサルタント",
			"editor":     "編集者",
			"viewer":     "閲覧者",
		},
	},
	English: {
		AppTagline:        "Connect vision and reality with structural tension charts",
		LoginTitle:        "Sign in",
		LoginButton:       "Sign in",
		LoginWithProvider: "Sign in with your provider",
		EmailLabel:        "Email",
		PasswordLabel:     "Password",
		WorkspacesTitle:   "Choose a workspace",
		CreateWorkspace:   "Create a new workspace",
		InviteTitle:       "Workspace invitation",
		InviteBody:        "You have been invited to %s as %s.",
		InviteJoin:        "Join",
		InviteInvalid:     "This invitation link is invalid or has expired.",
		InviteEmailSubj:   "%s invited you to %s",
		InviteEmailIntro:  "%s invited you to the workspace \"%s\" as %s.",
		InviteEmailExpiry: "This link expires in 7 days.",
		DashboardTitle:    "Dashboard",
		Role: map[string]string{
			"owner":      "Owner",
			"consultant": "Consultant",
			"editor":     "Editor",
			"viewer":     "Viewer",
		},
	},
}

// For returns the table for locale, falling back to Japanese.
func For(locale string) Messages {
	if m, ok := catalog[Normalize(locale)]; ok {
		return m
	}
	return catalog[Japanese]
}

// RoleName is the localized label for a role value.
func (m Messages) RoleName(role string) string {
	if name, ok := m.Role[role]; ok {
		return name
	}
	return role
}
